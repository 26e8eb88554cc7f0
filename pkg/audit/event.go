// Package audit records every detection run: what was trusted, what the
// controller reported, what was flagged and whether an alert went out.
package audit

import (
	"fmt"
	"net/netip"
	"time"
)

// Operations recorded in the audit trail
const (
	OperationCheck = "dhcp.check"
)

// Event is one detection run
type Event struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	User        string        `json:"user"`
	Controller  string        `json:"controller"`
	Operation   string        `json:"operation"`
	TrustedFile string        `json:"trusted_file,omitempty"`
	Trusted     int           `json:"trusted"`
	Observed    []string      `json:"observed"`
	Rogue       []string      `json:"rogue"`
	Alerted     bool          `json:"alerted"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Controller  string
	User        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	RogueOnly   bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, controller, operation string) *Event {
	return &Event{
		ID:         generateID(),
		Timestamp:  time.Now(),
		User:       user,
		Controller: controller,
		Operation:  operation,
	}
}

// WithTrustedFile sets the trusted list path and entry count
func (e *Event) WithTrustedFile(path string, entries int) *Event {
	e.TrustedFile = path
	e.Trusted = entries
	return e
}

// WithObserved sets the servers the controller reported
func (e *Event) WithObserved(addrs []netip.Addr) *Event {
	e.Observed = addrStrings(addrs)
	return e
}

// WithRogue sets the servers found untrusted
func (e *Event) WithRogue(addrs []netip.Addr) *Event {
	e.Rogue = addrStrings(addrs)
	return e
}

// WithAlerted records whether an alert was delivered
func (e *Event) WithAlerted(alerted bool) *Event {
	e.Alerted = alerted
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the run duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithDryRun marks a run that skipped alert delivery
func (e *Event) WithDryRun(dryRun bool) *Event {
	e.DryRun = dryRun
	return e
}

func addrStrings(addrs []netip.Addr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// Matches reports whether the event satisfies every criterion in f
func (f Filter) Matches(event *Event) bool {
	if f.Controller != "" && event.Controller != f.Controller {
		return false
	}
	if f.User != "" && event.User != f.User {
		return false
	}
	if f.Operation != "" && event.Operation != f.Operation {
		return false
	}
	if !f.StartTime.IsZero() && event.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && event.Timestamp.After(f.EndTime) {
		return false
	}
	if f.SuccessOnly && !event.Success {
		return false
	}
	if f.FailureOnly && event.Success {
		return false
	}
	if f.RogueOnly && len(event.Rogue) == 0 {
		return false
	}
	return true
}

// window applies Offset and Limit to matched events
func (f Filter) window(events []*Event) []*Event {
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return nil
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[:f.Limit]
	}
	return events
}
