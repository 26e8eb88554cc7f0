package alert

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/newtron-network/rogue-dhcp/pkg/cli"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// Alerter decides between the alert and the clean outcome of a run
type Alerter struct {
	Sender Sender
	From   string
	To     []string
	Out    io.Writer
	DryRun bool // print the alert but do not send it
}

// Notify sends one alert naming every rogue server and prints it, or prints
// the clean message when rogue is empty. It reports whether mail was sent.
func (a *Alerter) Notify(ctx context.Context, rogue []netip.Addr) (bool, error) {
	out := a.Out
	if out == nil {
		out = os.Stdout
	}

	if len(rogue) == 0 {
		fmt.Fprintf(out, "\n%s\n\n", cli.Green(CleanMessage))
		return false, nil
	}

	msg := NewMessage(a.From, a.To, rogue)
	sent := false
	if a.DryRun {
		util.WithField("rogue", len(rogue)).Warn("dry run: alert mail not sent")
	} else {
		if err := a.Sender.Send(ctx, msg); err != nil {
			return false, err
		}
		sent = true
	}

	fmt.Fprintf(out, "\n%s\n", cli.Red(msg.Summary()))
	return sent, nil
}
