package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/rogue-dhcp/pkg/alert"
	"github.com/newtron-network/rogue-dhcp/pkg/audit"
	"github.com/newtron-network/rogue-dhcp/pkg/config"
	"github.com/newtron-network/rogue-dhcp/pkg/controller"
	"github.com/newtron-network/rogue-dhcp/pkg/detect"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var trustedPath string
	if len(args) == 1 {
		trustedPath = args[0]
	} else if userSettings != nil && userSettings.TrustedFile != "" {
		trustedPath = userSettings.TrustedFile
		util.Debugf("using trusted file from settings: %s", trustedPath)
	}
	if trustedPath == "" {
		fmt.Fprint(out, usageText)
		return errUsage
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := promptPassword(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(!dryRun); err != nil {
		return err
	}

	if logger := openAudit(cfg.Audit); logger != nil {
		audit.SetDefaultLogger(logger)
		defer logger.Close()
	}

	client, err := controller.NewClient(cfg.Controller)
	if err != nil {
		return err
	}
	defer client.Close()
	util.WithController(cfg.Controller.Host).Debugf("controller API at %s", client.BaseURL)

	// with --json stdout carries only the result document
	alertOut := out
	if jsonOutput {
		alertOut = cmd.ErrOrStderr()
	}

	det := &detect.Detector{
		Controller: client,
		Notifier: &alert.Alerter{
			Sender: alert.NewSMTPSender(cfg.SMTP),
			From:   cfg.SMTP.Sender,
			To:     cfg.SMTP.Recipients,
			Out:    alertOut,
			DryRun: dryRun,
		},
		Host:     cfg.Controller.Host,
		Username: cfg.Controller.Username,
		Password: cfg.Controller.Password,
		User:     currentUser(),
		DryRun:   dryRun,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := det.Run(ctx, trustedPath)
	if err != nil {
		return err
	}
	util.WithController(cfg.Controller.Host).WithFields(map[string]interface{}{
		"clean":    res.Clean(),
		"observed": len(res.Observed),
		"rogue":    len(res.Rogue),
		"alerted":  res.Alerted,
	}).Info("check complete")
	if jsonOutput {
		return writeJSON(out, res)
	}
	return nil
}

// promptPassword asks for the controller password when none is configured
// and stdin is a terminal.
func promptPassword(cfg *config.Config) error {
	if cfg.Controller.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", cfg.Controller.Username, cfg.Controller.Host)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	cfg.Controller.Password = string(pw)
	return nil
}

// openAudit opens the configured audit backend. Failures are logged and
// the run continues without an audit trail. An explicitly configured path
// that cannot be opened warns; the built-in default only logs at debug.
func openAudit(cfg config.AuditConfig) audit.Logger {
	isDefault := cfg.Path == config.DefaultAuditPath()
	if userSettings != nil && userSettings.AuditPath != "" && isDefault {
		cfg.Path = userSettings.AuditPath
		isDefault = false
	}
	logger, err := audit.Open(cfg)
	if err != nil {
		if isDefault {
			util.Debugf("audit logging disabled: %v", err)
		} else {
			util.Warnf("Could not initialize audit logging: %v", err)
		}
		return nil
	}
	return logger
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
