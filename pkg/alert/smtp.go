package alert

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/newtron-network/rogue-dhcp/pkg/config"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

const defaultSMTPTimeout = 30 * time.Second

// Sender delivers an alert message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender delivers through a relay in plain text and unauthenticated by
// default. STARTTLS is only attempted when StartTLS is set, even if the
// relay advertises it. PLAIN auth is used when Username is set.
type SMTPSender struct {
	Addr     string
	Host     string
	Username string
	Password string
	StartTLS bool
}

// NewSMTPSender builds a sender from the smtp config section
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	port := cfg.Port
	if port == 0 {
		port = config.DefaultSMTPPort
	}
	return &SMTPSender{
		Addr:     net.JoinHostPort(cfg.Server, strconv.Itoa(port)),
		Host:     cfg.Server,
		Username: cfg.Username,
		Password: cfg.Password,
		StartTLS: cfg.StartTLS,
	}
}

// Send performs one SMTP session. Failures return *util.MailError.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := s.send(ctx, msg); err != nil {
		return util.NewMailError(s.Addr, err)
	}
	util.WithField("relay", s.Addr).WithField("recipients", len(msg.To)).Info("alert mail sent")
	return nil
}

func (s *SMTPSender) send(ctx context.Context, msg *Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("rendering message: %w", err)
	}

	d := net.Dialer{Timeout: defaultSMTPTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultSMTPTimeout)
	}
	conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if s.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("starttls: not offered by %s", s.Addr)
		}
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(msg.From); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
