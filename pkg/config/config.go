// Package config loads the rogue-dhcp configuration: controller endpoint and
// credentials, SMTP relay and recipients, audit trail and logging.
//
// Values come from a YAML file, then ROGUE_DHCP_* environment variables
// override individual fields. A missing file is not an error.
package config

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// DefaultPath is where the config file is looked for when none is given
var DefaultPath = "/etc/rogue-dhcp/config.yaml"

// SystemAuditPath is the audit log location when no home directory exists
const SystemAuditPath = "/var/log/rogue-dhcp/audit.log"

// DefaultAuditPath returns ~/.rogue-dhcp/audit.log, next to the user
// settings, falling back to SystemAuditPath.
func DefaultAuditPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return SystemAuditPath
	}
	return filepath.Join(home, ".rogue-dhcp", "audit.log")
}

// Defaults
const (
	DefaultControllerPort = 8082
	DefaultScheme         = "http"
	DefaultTimeout        = 30 * time.Second
	DefaultSMTPPort       = 25
	DefaultSSHPort        = 22
	DefaultAuditMaxSize   = 10 * 1024 * 1024 // 10MB
	DefaultAuditBackups   = 10
	DefaultRedisKey       = "rogue-dhcp:audit"
	DefaultRedisMaxLen    = 1000
	DefaultLogLevel       = "warn"
)

// Config is the top-level configuration file
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Audit      AuditConfig      `yaml:"audit"`
	Log        LogConfig        `yaml:"log"`
}

// ControllerConfig locates the network controller REST API
type ControllerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port,omitempty"`
	Scheme   string        `yaml:"scheme,omitempty"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	SSH      *SSHConfig    `yaml:"ssh,omitempty"`
}

// SSHConfig is an optional jump host the controller is reached through.
// Host keys are checked against KnownHosts when it is set.
type SSHConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port,omitempty"`
	User       string `yaml:"user"`
	Password   string `yaml:"password,omitempty"`
	KnownHosts string `yaml:"known_hosts,omitempty"`
}

// SMTPConfig describes the mail relay and alert recipients
type SMTPConfig struct {
	Server     string   `yaml:"server"`
	Port       int      `yaml:"port,omitempty"`
	Username   string   `yaml:"username,omitempty"`
	Password   string   `yaml:"password,omitempty"`
	StartTLS   bool     `yaml:"starttls,omitempty"` // upgrade only when set
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
}

// AuditConfig controls where run records go. Redis is used instead of the
// file when Redis.Addr is set.
type AuditConfig struct {
	Disabled   bool         `yaml:"disabled,omitempty"`
	Path       string       `yaml:"path,omitempty"`
	MaxSize    int64        `yaml:"max_size,omitempty"`
	MaxBackups int          `yaml:"max_backups,omitempty"`
	Redis      *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig selects a Redis list for audit events
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	DB     int    `yaml:"db,omitempty"`
	Key    string `yaml:"key,omitempty"`
	MaxLen int64  `yaml:"max_len,omitempty"`
}

// LogConfig sets logger verbosity and format
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "text" or "json"
}

// Load reads path (DefaultPath when empty) over the defaults and applies
// environment overrides. Sections that only appear in the file or the
// environment (ssh, redis) get their defaults afterwards.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		util.Debugf("config %s not found, using defaults and environment", path)
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a config holding only default values
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Controller.Port == 0 {
		c.Controller.Port = DefaultControllerPort
	}
	if c.Controller.Scheme == "" {
		c.Controller.Scheme = DefaultScheme
	}
	if c.Controller.Timeout == 0 {
		c.Controller.Timeout = DefaultTimeout
	}
	if c.Controller.SSH != nil && c.Controller.SSH.Port == 0 {
		c.Controller.SSH.Port = DefaultSSHPort
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = DefaultSMTPPort
	}
	if c.Audit.Path == "" {
		c.Audit.Path = DefaultAuditPath()
	}
	if c.Audit.MaxSize == 0 {
		c.Audit.MaxSize = DefaultAuditMaxSize
	}
	if c.Audit.MaxBackups == 0 {
		c.Audit.MaxBackups = DefaultAuditBackups
	}
	if r := c.Audit.Redis; r != nil {
		if r.Key == "" {
			r.Key = DefaultRedisKey
		}
		if r.MaxLen == 0 {
			r.MaxLen = DefaultRedisMaxLen
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// ApplyEnv overrides fields from ROGUE_DHCP_* variables found via lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not a number: %w", key, v, util.ErrInvalidConfig)
		}
		*dst = n
		return nil
	}

	str("ROGUE_DHCP_CONTROLLER", &c.Controller.Host)
	if err := num("ROGUE_DHCP_CONTROLLER_PORT", &c.Controller.Port); err != nil {
		return err
	}
	str("ROGUE_DHCP_CONTROLLER_SCHEME", &c.Controller.Scheme)
	str("ROGUE_DHCP_USERNAME", &c.Controller.Username)
	str("ROGUE_DHCP_PASSWORD", &c.Controller.Password)
	if v, ok := lookup("ROGUE_DHCP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ROGUE_DHCP_TIMEOUT: %w", err)
		}
		c.Controller.Timeout = d
	}

	str("ROGUE_DHCP_SMTP_SERVER", &c.SMTP.Server)
	if err := num("ROGUE_DHCP_SMTP_PORT", &c.SMTP.Port); err != nil {
		return err
	}
	str("ROGUE_DHCP_SMTP_USERNAME", &c.SMTP.Username)
	str("ROGUE_DHCP_SMTP_PASSWORD", &c.SMTP.Password)
	if v, ok := lookup("ROGUE_DHCP_SMTP_STARTTLS"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ROGUE_DHCP_SMTP_STARTTLS: %q is not a boolean: %w", v, util.ErrInvalidConfig)
		}
		c.SMTP.StartTLS = b
	}
	str("ROGUE_DHCP_SENDER", &c.SMTP.Sender)
	if v, ok := lookup("ROGUE_DHCP_RECIPIENTS"); ok && v != "" {
		c.SMTP.Recipients = splitList(v)
	}

	str("ROGUE_DHCP_AUDIT_PATH", &c.Audit.Path)
	if v, ok := lookup("ROGUE_DHCP_AUDIT_REDIS"); ok && v != "" {
		if c.Audit.Redis == nil {
			c.Audit.Redis = &RedisConfig{}
		}
		c.Audit.Redis.Addr = strings.TrimSpace(v)
	}

	str("ROGUE_DHCP_LOG_LEVEL", &c.Log.Level)
	str("ROGUE_DHCP_LOG_FORMAT", &c.Log.Format)
	return nil
}

// Validate checks the controller section and, when withSMTP is set, the SMTP
// section. The controller password is not required: the CLI prompts for it.
func (c *Config) Validate(withSMTP bool) error {
	v := &util.ValidationBuilder{}

	ctl := c.Controller
	v.Add(ctl.Host != "", "controller.host is required")
	v.Add(ctl.Username != "", "controller.username is required")
	v.Add(ctl.Port > 0 && ctl.Port <= 65535, fmt.Sprintf("controller.port %d out of range", ctl.Port))
	v.Add(ctl.Scheme == "http" || ctl.Scheme == "https",
		fmt.Sprintf("controller.scheme must be http or https, got %q", ctl.Scheme))
	v.Add(ctl.Timeout >= 0, "controller.timeout must not be negative")
	if ssh := ctl.SSH; ssh != nil {
		v.Add(ssh.Host != "", "controller.ssh.host is required when ssh is set")
		v.Add(ssh.User != "", "controller.ssh.user is required when ssh is set")
	}

	if withSMTP {
		v.Add(c.SMTP.Server != "", "smtp.server is required")
		v.Add(c.SMTP.Port > 0 && c.SMTP.Port <= 65535, fmt.Sprintf("smtp.port %d out of range", c.SMTP.Port))
		if c.SMTP.Sender == "" {
			v.AddErrorf("smtp.sender is required")
		} else if _, err := mail.ParseAddress(c.SMTP.Sender); err != nil {
			v.AddErrorf("smtp.sender %q: %v", c.SMTP.Sender, err)
		}
		if len(c.SMTP.Recipients) == 0 {
			v.AddErrorf("smtp.recipients needs at least one address")
		}
		for _, r := range c.SMTP.Recipients {
			if _, err := mail.ParseAddress(r); err != nil {
				v.AddErrorf("smtp.recipients %q: %v", r, err)
			}
		}
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		v.AddErrorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return v.Build()
}

// ControllerAddr returns host:port of the controller API
func (c *Config) ControllerAddr() string {
	return joinHostPort(c.Controller.Host, c.Controller.Port)
}

// SMTPAddr returns host:port of the mail relay
func (c *Config) SMTPAddr() string {
	return joinHostPort(c.SMTP.Server, c.SMTP.Port)
}

// Marshal renders the config as YAML with secrets masked.
func (c *Config) Marshal() ([]byte, error) {
	masked := *c
	masked.Controller.Password = mask(c.Controller.Password)
	masked.SMTP.Password = mask(c.SMTP.Password)
	if c.Controller.SSH != nil {
		ssh := *c.Controller.SSH
		ssh.Password = mask(ssh.Password)
		masked.Controller.SSH = &ssh
	}
	return yaml.Marshal(&masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
}
