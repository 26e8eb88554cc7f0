// Package trusted loads the admin-approved list of DHCP servers.
//
// The file is plain text: IP addresses (or CIDR prefixes) separated by any
// whitespace, one or many per line. A '#' starts a comment that runs to the
// end of the line.
//
//	# core DHCP relays
//	10.2.0.10 10.2.0.11
//	10.9.0.0/29   # lab segment
package trusted

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"go4.org/netipx"

	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// maxLineSize bounds a single line of the trusted file
const maxLineSize = 64 * 1024 * 1024

// Set is an immutable set of trusted addresses and prefixes.
type Set struct {
	entries []netip.Prefix
	ips     *netipx.IPSet
}

// Load reads and parses the trusted list at path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, util.NewFileReadError(path, err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s.Len() == 0 {
		util.Warnf("trusted list %s is empty: every observed DHCP server will be reported", path)
	}
	return s, nil
}

// Parse reads whitespace-separated entries from r. All malformed entries are
// reported together in a single *util.ValidationError.
func Parse(r io.Reader) (*Set, error) {
	var (
		v       util.ValidationBuilder
		b       netipx.IPSetBuilder
		entries []netip.Prefix
		seen    = make(map[netip.Prefix]bool)
	)

	// the whole list may sit on one line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			p, err := util.ParseAddrOrPrefix(tok)
			if err != nil {
				v.AddErrorf("line %d: %v", lineNum, err)
				continue
			}
			if seen[p] {
				util.Debugf("trusted: duplicate entry %s at line %d", tok, lineNum)
				continue
			}
			seen[p] = true
			entries = append(entries, p)
			b.AddPrefix(p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := v.Build(); err != nil {
		return nil, err
	}

	ips, err := b.IPSet()
	if err != nil {
		return nil, err
	}
	return &Set{entries: entries, ips: ips}, nil
}

// FromStrings builds a set from already-split entries.
func FromStrings(entries ...string) (*Set, error) {
	return Parse(strings.NewReader(strings.Join(entries, "\n")))
}

// Contains reports whether addr is trusted, either listed directly or
// covered by a listed prefix.
func (s *Set) Contains(addr netip.Addr) bool {
	if s == nil || s.ips == nil {
		return false
	}
	return s.ips.Contains(addr.Unmap())
}

// Len returns the number of distinct entries as written in the file.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns the distinct entries in file order. Bare addresses are
// full-length prefixes.
func (s *Set) Entries() []netip.Prefix {
	if s == nil {
		return nil
	}
	out := make([]netip.Prefix, len(s.entries))
	copy(out, s.entries)
	return out
}

// Strings renders the entries, bare addresses without their /32 or /128.
func (s *Set) Strings() []string {
	out := make([]string, 0, s.Len())
	for _, p := range s.Entries() {
		if p.IsSingleIP() {
			out = append(out, p.Addr().String())
		} else {
			out = append(out, p.String())
		}
	}
	return out
}
