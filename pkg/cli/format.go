// Package cli holds console output helpers for the rogue-dhcp command.
package cli

import (
	"os"

	"golang.org/x/term"
)

// colorEnabled is false when NO_COLOR is set (per no-color.org) or stdout
// is not a terminal.
var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// SetColor forces ANSI colors on or off.
func SetColor(on bool) { colorEnabled = on }

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + "\033[0m"
}

// Green wraps s in ANSI green.
func Green(s string) string { return paint("\033[32m", s) }

// Yellow wraps s in ANSI yellow.
func Yellow(s string) string { return paint("\033[33m", s) }

// Red wraps s in ANSI red.
func Red(s string) string { return paint("\033[31m", s) }

// Bold wraps s in ANSI bold.
func Bold(s string) string { return paint("\033[1m", s) }

// Status renders a run outcome for listings: "ok" in green, "FAIL" in red,
// "ROGUE" in yellow when the run succeeded but found untrusted servers.
func Status(success bool, rogue int) string {
	switch {
	case !success:
		return Red("FAIL")
	case rogue > 0:
		return Yellow("ROGUE")
	default:
		return Green("ok")
	}
}
