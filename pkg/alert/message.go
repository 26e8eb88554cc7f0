// Package alert reports rogue DHCP servers: by mail through an SMTP relay
// and on the console.
package alert

import (
	"bytes"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/netip"
	"net/textproto"
	"strings"
	"time"

	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// Fixed alert wording
const (
	Subject      = "****** ROGUE DHCP ALERT ******"
	Headline     = "********* Found Untrusted/Rogue DHCP servers running in your network ************"
	CleanMessage = "********* No Rogue DHCP servers are found ************"
)

// Message is a multipart/alternative alert mail
type Message struct {
	From    string
	To      []string
	Subject string
	Date    time.Time
	Rogue   []netip.Addr
}

// NewMessage composes the alert for the given rogue servers
func NewMessage(from string, to []string, rogue []netip.Addr) *Message {
	return &Message{
		From:    from,
		To:      to,
		Subject: Subject,
		Date:    time.Now(),
		Rogue:   rogue,
	}
}

// Listing is the one-line address summary shared by every rendering
func (m *Message) Listing() string {
	return "Here is the IP addresses " + util.FormatAddrs(m.Rogue) + " "
}

// Text is the plain-text body
func (m *Message) Text() string {
	var b strings.Builder
	b.WriteString(Headline + "\n")
	b.WriteString(m.Listing() + "\n")
	return b.String()
}

// HTML is the html body
func (m *Message) HTML() string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	b.WriteString("<p>" + html.EscapeString(Headline) + "</p>\n")
	b.WriteString("<p>" + html.EscapeString(m.Listing()) + "</p>\n<ul>\n")
	for _, a := range m.Rogue {
		b.WriteString("<li>" + html.EscapeString(a.String()) + "</li>\n")
	}
	b.WriteString("</ul>\n</body></html>\n")
	return b.String()
}

// Summary is what gets printed to the console when the alert fires
func (m *Message) Summary() string {
	return Headline + "\n" + m.Listing() + "\n"
}

// Bytes renders the RFC 5322 message: headers, then a text/plain and a
// text/html alternative, both quoted-printable.
func (m *Message) Bytes() ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", m.Text()},
		{"text/html; charset=utf-8", m.HTML()},
	} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", part.contentType)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		pw, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&out, "%s: %s\r\n", k, v)
	}
	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", m.Date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
