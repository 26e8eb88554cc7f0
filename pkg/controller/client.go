// Package controller talks to the network controller REST API: session login
// and the DHCP server inventory the controller has observed.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/newtron-network/rogue-dhcp/pkg/config"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
	"github.com/newtron-network/rogue-dhcp/pkg/version"
)

// API paths relative to the controller base URL
const (
	LoginPath    = "/auth/login"
	DHCPInfoPath = "/api/v1/data/controller/applications/bigtap/dhcp-info"
)

// SessionCookie is the cookie name the controller expects the token under
const SessionCookie = "session_cookie"

// Token is a controller session token, valid for one run.
type Token string

// Client is a JSON-over-HTTP client for one controller.
type Client struct {
	BaseURL string
	Host    string
	HTTP    *http.Client

	tunnel *SSHTunnel
}

// NewClient builds a client for the configured controller. When an SSH jump
// host is configured, every connection is dialed through it.
func NewClient(cfg config.ControllerConfig) (*Client, error) {
	port := cfg.Port
	if port == 0 {
		port = config.DefaultControllerPort
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = config.DefaultScheme
	}
	host := strings.Trim(cfg.Host, "[]")
	if host == "" {
		return nil, fmt.Errorf("controller host empty: %w", util.ErrInvalidConfig)
	}

	c := &Client{
		BaseURL: scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)),
		Host:    host,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
	}

	if cfg.SSH != nil {
		tunnel, err := NewSSHTunnel(*cfg.SSH)
		if err != nil {
			return nil, err
		}
		c.tunnel = tunnel
		c.HTTP.Transport = &http.Transport{
			DialContext:       tunnel.DialContext,
			DisableKeepAlives: true,
		}
	}
	return c, nil
}

// Close releases the SSH jump connection, if any.
func (c *Client) Close() error {
	if c.tunnel != nil {
		return c.tunnel.Close()
	}
	return nil
}

// Do sends a JSON request and returns the raw response body. body is
// marshaled to JSON when non-nil. A non-empty token is sent as the session
// cookie. Transport failures and non-2xx responses return *util.HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, token Token) ([]byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, &util.HTTPError{Method: method, URL: u, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if token != "" {
		req.Header.Set("Cookie", SessionCookie+"="+string(token))
	}

	log := util.WithController(c.Host).WithField("method", method).WithField("path", path)
	log.Debug("controller request")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &util.HTTPError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &util.HTTPError{Method: method, URL: u, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &util.HTTPError{Method: method, URL: u, Status: resp.StatusCode, Body: string(data)}
	}
	log.WithField("status", resp.StatusCode).WithField("bytes", len(data)).Debug("controller response")
	return data, nil
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionCookie *string `json:"session_cookie"`
}

// Login authenticates and returns the session token.
func (c *Client) Login(ctx context.Context, user, password string) (Token, error) {
	data, err := c.Do(ctx, http.MethodPost, LoginPath, loginRequest{User: user, Password: password}, "")
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", util.NewAuthError(c.Host, fmt.Sprintf("login response is not JSON: %v", err))
	}
	if resp.SessionCookie == nil {
		return "", util.NewAuthError(c.Host, "login response has no "+SessionCookie)
	}
	if *resp.SessionCookie == "" {
		return "", util.NewAuthError(c.Host, "login response has an empty "+SessionCookie)
	}

	util.WithController(c.Host).WithField("user", user).Debug("session established")
	return Token(*resp.SessionCookie), nil
}
