package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

const sampleYAML = `
controller:
  host: 10.2.19.102
  username: admin
  password: bsn
  timeout: 10s
smtp:
  server: smtp.example.com
  sender: ROGUE_DHCP_DETECTED@bigmon-tracker.example.com
  recipients:
    - netops@example.com
    - demo@example.com
audit:
  redis:
    addr: 127.0.0.1:6379
log:
  level: info
`

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "ROGUE_DHCP_") {
			t.Setenv(k, "")
		}
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Controller.Host != "10.2.19.102" {
		t.Errorf("Controller.Host = %q", cfg.Controller.Host)
	}
	if cfg.Controller.Port != DefaultControllerPort {
		t.Errorf("Controller.Port = %d, want default %d", cfg.Controller.Port, DefaultControllerPort)
	}
	if cfg.Controller.Timeout != 10*time.Second {
		t.Errorf("Controller.Timeout = %v, want 10s", cfg.Controller.Timeout)
	}
	if diff := cmp.Diff([]string{"netops@example.com", "demo@example.com"}, cfg.SMTP.Recipients); diff != "" {
		t.Errorf("Recipients mismatch (-want +got):\n%s", diff)
	}
	if cfg.SMTP.Port != DefaultSMTPPort {
		t.Errorf("SMTP.Port = %d", cfg.SMTP.Port)
	}
	if cfg.Audit.Redis == nil || cfg.Audit.Redis.Key != DefaultRedisKey {
		t.Errorf("Audit.Redis = %+v, want default key", cfg.Audit.Redis)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if err := cfg.Validate(true); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "controller: [unterminated"))
	if err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Fatalf("Load() error = %v, want parse error", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROGUE_DHCP_CONTROLLER", "10.0.0.5")
	t.Setenv("ROGUE_DHCP_PASSWORD", "from-env")
	t.Setenv("ROGUE_DHCP_RECIPIENTS", "a@example.com, b@example.com")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Controller.Host != "10.0.0.5" {
		t.Errorf("Controller.Host = %q, want env value", cfg.Controller.Host)
	}
	if cfg.Controller.Password != "from-env" {
		t.Errorf("Controller.Password = %q, want env value", cfg.Controller.Password)
	}
	if diff := cmp.Diff([]string{"a@example.com", "b@example.com"}, cfg.SMTP.Recipients); diff != "" {
		t.Errorf("Recipients mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{}
	err := cfg.ApplyEnv(envMap(map[string]string{
		"ROGUE_DHCP_CONTROLLER_PORT": "9443",
		"ROGUE_DHCP_TIMEOUT":         "5s",
		"ROGUE_DHCP_AUDIT_REDIS":     "redis:6379",
		"ROGUE_DHCP_SMTP_PORT":       "587",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() failed: %v", err)
	}
	if cfg.Controller.Port != 9443 || cfg.Controller.Timeout != 5*time.Second {
		t.Errorf("Controller = %+v", cfg.Controller)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("SMTP.Port = %d", cfg.SMTP.Port)
	}
	if cfg.Audit.Redis == nil || cfg.Audit.Redis.Addr != "redis:6379" {
		t.Errorf("Audit.Redis = %+v", cfg.Audit.Redis)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := &Config{}
	err := cfg.ApplyEnv(envMap(map[string]string{"ROGUE_DHCP_CONTROLLER_PORT": "eighty"}))
	if !errors.Is(err, util.ErrInvalidConfig) {
		t.Fatalf("ApplyEnv() error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	t.Run("empty config", func(t *testing.T) {
		err := Default().Validate(true)
		var ve *util.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Validate() = %v, want *util.ValidationError", err)
		}
		joined := strings.Join(ve.Errors, "\n")
		for _, want := range []string{"controller.host", "controller.username", "smtp.server", "smtp.sender", "smtp.recipients"} {
			if !strings.Contains(joined, want) {
				t.Errorf("expected error mentioning %s, got:\n%s", want, joined)
			}
		}
	})

	t.Run("smtp skipped", func(t *testing.T) {
		cfg := Default()
		cfg.Controller.Host = "10.2.19.102"
		cfg.Controller.Username = "admin"
		if err := cfg.Validate(false); err != nil {
			t.Errorf("Validate(false) = %v, want nil", err)
		}
	})

	t.Run("bad recipient", func(t *testing.T) {
		cfg := Default()
		cfg.Controller.Host = "10.2.19.102"
		cfg.Controller.Username = "admin"
		cfg.SMTP.Server = "smtp.example.com"
		cfg.SMTP.Sender = "alerts@example.com"
		cfg.SMTP.Recipients = []string{"not an address"}
		err := cfg.Validate(true)
		if err == nil || !strings.Contains(err.Error(), "not an address") {
			t.Errorf("Validate() = %v, want recipient error", err)
		}
	})

	t.Run("ssh needs user", func(t *testing.T) {
		cfg := Default()
		cfg.Controller.Host = "10.2.19.102"
		cfg.Controller.Username = "admin"
		cfg.Controller.SSH = &SSHConfig{Host: "bastion"}
		err := cfg.Validate(false)
		if err == nil || !strings.Contains(err.Error(), "controller.ssh.user") {
			t.Errorf("Validate() = %v, want ssh user error", err)
		}
	})
}

func TestAddrs(t *testing.T) {
	cfg := Default()
	cfg.Controller.Host = "10.2.19.102"
	cfg.SMTP.Server = "2001:db8::25"

	if got := cfg.ControllerAddr(); got != "10.2.19.102:8082" {
		t.Errorf("ControllerAddr() = %q", got)
	}
	if got := cfg.SMTPAddr(); got != "[2001:db8::25]:25" {
		t.Errorf("SMTPAddr() = %q", got)
	}
}

func TestMarshal_MasksSecrets(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	out, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if strings.Contains(string(out), "bsn") {
		t.Errorf("Marshal() leaked password:\n%s", out)
	}
	if cfg.Controller.Password != "bsn" {
		t.Error("Marshal() must not modify the receiver")
	}
}

func TestStartTLS(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "smtp:\n  server: relay\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.SMTP.StartTLS {
		t.Error("StartTLS should be off unless configured")
	}

	cfg, err = Load(writeConfig(t, "smtp:\n  server: relay\n  starttls: true\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !cfg.SMTP.StartTLS {
		t.Error("smtp.starttls: true was not read")
	}

	cfg = &Config{}
	if err := cfg.ApplyEnv(envMap(map[string]string{"ROGUE_DHCP_SMTP_STARTTLS": "true"})); err != nil {
		t.Fatalf("ApplyEnv() failed: %v", err)
	}
	if !cfg.SMTP.StartTLS {
		t.Error("ROGUE_DHCP_SMTP_STARTTLS=true was not applied")
	}

	err = (&Config{}).ApplyEnv(envMap(map[string]string{"ROGUE_DHCP_SMTP_STARTTLS": "maybe"}))
	if !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("ApplyEnv() error = %v, want ErrInvalidConfig", err)
	}
}

func TestDefaultAuditPath_UnderHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	want := filepath.Join(home, ".rogue-dhcp", "audit.log")
	if got := DefaultAuditPath(); got != want {
		t.Errorf("DefaultAuditPath() = %q, want %q", got, want)
	}

	cfg, err := Load(filepath.Join(home, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Audit.Path != want {
		t.Errorf("Audit.Path = %q, want %q", cfg.Audit.Path, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "controller:\n  host: ctl\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Controller.Port != 9000 {
		t.Errorf("Controller.Port = %d, want file value", cfg.Controller.Port)
	}
	if cfg.Controller.Scheme != DefaultScheme || cfg.SMTP.Port != DefaultSMTPPort || cfg.Log.Level != DefaultLogLevel {
		t.Errorf("defaults lost: %+v", cfg)
	}
}
