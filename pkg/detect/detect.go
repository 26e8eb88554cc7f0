// Package detect runs one rogue DHCP check: load the trusted list, ask the
// controller which DHCP servers it has seen, flag the untrusted ones and
// hand them to the alerter.
package detect

import (
	"context"
	"net/netip"
	"time"

	"github.com/newtron-network/rogue-dhcp/pkg/audit"
	"github.com/newtron-network/rogue-dhcp/pkg/controller"
	"github.com/newtron-network/rogue-dhcp/pkg/trusted"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// Controller is the part of the controller API a check needs
type Controller interface {
	Login(ctx context.Context, user, password string) (controller.Token, error)
	DHCPServers(ctx context.Context, token controller.Token) ([]netip.Addr, error)
}

// Notifier reports the outcome of a check. It returns whether an alert
// was delivered.
type Notifier interface {
	Notify(ctx context.Context, rogue []netip.Addr) (bool, error)
}

// Detector wires the pipeline stages together
type Detector struct {
	Controller Controller
	Notifier   Notifier

	Host     string // controller host, for logs and the audit trail
	Username string
	Password string

	// User is the local account recorded in the audit trail
	User   string
	DryRun bool
}

// Result is the outcome of a completed check
type Result struct {
	TrustedFile string       `json:"trusted_file"`
	Trusted     []string     `json:"trusted"`
	Observed    []netip.Addr `json:"observed"`
	Rogue       []netip.Addr `json:"rogue"`
	Alerted     bool         `json:"alerted"`
}

// Clean reports whether no untrusted server was found.
func (r *Result) Clean() bool {
	return len(r.Rogue) == 0
}

// Compare returns the observed servers that are not trusted, in observed
// order. Duplicates in observed are kept. The result is never nil.
func Compare(observed []netip.Addr, set *trusted.Set) []netip.Addr {
	rogue := make([]netip.Addr, 0)
	for _, a := range observed {
		if !set.Contains(a) {
			rogue = append(rogue, a)
		}
	}
	return rogue
}

// Run performs one check against trustedPath. The trusted list is read
// before any network call, so a bad file never reaches the controller.
// Every run, failed or not, is written to the audit trail.
func (d *Detector) Run(ctx context.Context, trustedPath string) (*Result, error) {
	start := time.Now()
	result := &Result{TrustedFile: trustedPath}
	event := audit.NewEvent(d.User, d.Host, audit.OperationCheck).WithDryRun(d.DryRun)

	err := d.run(ctx, result, event)

	event.WithDuration(time.Since(start))
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
	}
	if aerr := audit.Log(event); aerr != nil {
		util.Warnf("audit log write failed: %v", aerr)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Detector) run(ctx context.Context, result *Result, event *audit.Event) error {
	util.WithStage("load").WithField("path", result.TrustedFile).Debug("loading trusted list")
	set, err := trusted.Load(result.TrustedFile)
	if err != nil {
		return err
	}
	result.Trusted = set.Strings()
	event.WithTrustedFile(result.TrustedFile, set.Len())

	util.WithStage("login").WithField("controller", d.Host).Debug("logging in")
	token, err := d.Controller.Login(ctx, d.Username, d.Password)
	if err != nil {
		return err
	}

	util.WithStage("fetch").WithField("controller", d.Host).Debug("fetching dhcp-info")
	observed, err := d.Controller.DHCPServers(ctx, token)
	if err != nil {
		return err
	}
	result.Observed = observed
	event.WithObserved(observed)

	result.Rogue = Compare(observed, set)
	event.WithRogue(result.Rogue)
	util.WithStage("compare").WithFields(map[string]interface{}{
		"trusted":  set.Len(),
		"observed": len(observed),
		"rogue":    len(result.Rogue),
	}).Debug("comparison done")

	util.WithStage("alert").Debug("reporting")
	alerted, err := d.Notifier.Notify(ctx, result.Rogue)
	if err != nil {
		return err
	}
	result.Alerted = alerted
	event.WithAlerted(alerted)
	return nil
}
