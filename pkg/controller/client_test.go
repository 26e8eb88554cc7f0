package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/rogue-dhcp/pkg/config"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

const testToken = "c0ffee-session"

// fakeController mimics the controller login and dhcp-info endpoints.
type fakeController struct {
	dhcpInfo   string
	loginBody  string // overrides the login response when set
	loginCalls int
	dataCalls  int
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "content type", http.StatusUnsupportedMediaType)
		return
	}
	switch r.URL.Path {
	case LoginPath:
		f.loginCalls++
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			User     string `json:"user"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if req.User != "admin" || req.Password != "bsn" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		if f.loginBody != "" {
			w.Write([]byte(f.loginBody))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"session_cookie": testToken})
	case DHCPInfoPath:
		f.dataCalls++
		if r.Method != http.MethodGet {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value != testToken {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(f.dhcpInfo))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	c, err := NewClient(config.ControllerConfig{Host: host, Port: port, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewClient_BaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ControllerConfig
		want string
	}{
		{"defaults", config.ControllerConfig{Host: "10.2.19.102"}, "http://10.2.19.102:8082"},
		{"https custom port", config.ControllerConfig{Host: "ctl.example.com", Port: 8443, Scheme: "https"}, "https://ctl.example.com:8443"},
		{"ipv6", config.ControllerConfig{Host: "2001:db8::2"}, "http://[2001:db8::2]:8082"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if err != nil {
				t.Fatalf("NewClient() failed: %v", err)
			}
			if c.BaseURL != tt.want {
				t.Errorf("BaseURL = %q, want %q", c.BaseURL, tt.want)
			}
		})
	}

	if _, err := NewClient(config.ControllerConfig{}); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("NewClient(empty) error = %v, want ErrInvalidConfig", err)
	}
}

func TestLogin(t *testing.T) {
	fc := &fakeController{}
	c := newTestClient(t, fc)

	tok, err := c.Login(context.Background(), "admin", "bsn")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if tok != testToken {
		t.Errorf("Login() = %q, want %q", tok, testToken)
	}
	if fc.loginCalls != 1 {
		t.Errorf("loginCalls = %d, want 1", fc.loginCalls)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	c := newTestClient(t, &fakeController{})

	_, err := c.Login(context.Background(), "admin", "wrong")
	var he *util.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("Login() error = %v, want *util.HTTPError", err)
	}
	if he.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", he.Status)
	}
}

func TestLogin_MalformedResponses(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      "<html>login</html>",
		"missing field": `{"user":"admin"}`,
		"empty token":   `{"session_cookie":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, &fakeController{loginBody: body})
			_, err := c.Login(context.Background(), "admin", "bsn")
			if !errors.Is(err, util.ErrAuth) {
				t.Errorf("Login() error = %v, want ErrAuth", err)
			}
		})
	}
}

func TestDHCPServers(t *testing.T) {
	fc := &fakeController{dhcpInfo: `[
		{"server-ip-addr": "8.8.8.8", "vlan": 10},
		{"server-ip-addr": "9.9.9.9"},
		{"server-ip-addr": "8.8.8.8"}
	]`}
	c := newTestClient(t, fc)
	ctx := context.Background()

	tok, err := c.Login(ctx, "admin", "bsn")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	got, err := c.DHCPServers(ctx, tok)
	if err != nil {
		t.Fatalf("DHCPServers() failed: %v", err)
	}

	want := []netip.Addr{
		netip.MustParseAddr("8.8.8.8"),
		netip.MustParseAddr("9.9.9.9"),
		netip.MustParseAddr("8.8.8.8"),
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
		t.Errorf("DHCPServers() mismatch (-want +got):\n%s", diff)
	}
}

func TestDHCPServers_NoSession(t *testing.T) {
	c := newTestClient(t, &fakeController{dhcpInfo: `[]`})

	_, err := c.DHCPServers(context.Background(), "")
	if !errors.Is(err, util.ErrHTTP) {
		t.Fatalf("DHCPServers() error = %v, want ErrHTTP", err)
	}
}

func TestDo_SetsHeaders(t *testing.T) {
	var gotCookie, gotType, gotBody string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotType = r.Header.Get("Content-Type")
		var m map[string]interface{}
		json.NewDecoder(r.Body).Decode(&m)
		b, _ := json.Marshal(m)
		gotBody = string(b)
		w.Write([]byte("raw-body"))
	}))

	data, err := c.Do(context.Background(), http.MethodGet, "/anything", struct{}{}, Token("abc"))
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if string(data) != "raw-body" {
		t.Errorf("Do() = %q, want raw body", data)
	}
	if gotCookie != "session_cookie=abc" {
		t.Errorf("Cookie = %q", gotCookie)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody != "{}" {
		t.Errorf("body = %q, want {}", gotBody)
	}
}

func TestDo_NoTokenNoCookie(t *testing.T) {
	var hadCookie bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadCookie = r.Header["Cookie"]
	}))

	if _, err := c.Do(context.Background(), http.MethodGet, "/", nil, ""); err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if hadCookie {
		t.Error("Cookie header should not be sent without a token")
	}
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := &Client{BaseURL: base, Host: "closed", HTTP: &http.Client{Timeout: time.Second}}
	_, err := c.Do(context.Background(), http.MethodGet, "/", nil, "")

	var he *util.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("Do() error = %v, want *util.HTTPError", err)
	}
	if he.Status != 0 || he.Err == nil {
		t.Errorf("HTTPError = %+v, want transport failure", he)
	}
}
