package cmd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"gknock/config"
)

// settingsFile returns a --config argument pointing into a temp dir so
// tests never touch the real user settings.
func settingsFile(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	return "--config=" + path, path
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	// Execute with --version should not return an error (it prints and exits).
	err := Execute(context.Background(), []string{"--version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help returns without error.
func TestExecute_Help(t *testing.T) {
	if err := Execute(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	cfgFlag, _ := settingsFile(t)
	err := Execute(context.Background(), []string{cfgFlag, "-H", "knock.example.com", "--dry-run", "open"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	cfgFlag, _ := settingsFile(t)
	err := Execute(context.Background(), []string{cfgFlag, "-n", "-H", "knock.example.com", "--dry-run"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_BadCommand verifies positional argument checking.
func TestExecute_BadCommand(t *testing.T) {
	cfgFlag, _ := settingsFile(t)
	for _, args := range [][]string{{"scan"}, {"open", "close"}} {
		err := Execute(context.Background(), append([]string{cfgFlag}, args...))
		if err == nil {
			t.Errorf("expected error for %q", args)
		}
	}
}

// TestExecute_OpenKnocksListener knocks a loopback listener and checks
// that the connection attempt arrived.
func TestExecute_OpenKnocksListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	accepted := make(chan struct{}, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
			accepted <- struct{}{}
		}
	}()

	cfgFlag, _ := settingsFile(t)
	err = Execute(context.Background(), []string{cfgFlag, "-H", "127.0.0.1", "-o", port, "-d", "0", "open"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never saw the knock")
	}
}

// TestConfigure_Precedence verifies flags > env > settings file > defaults.
func TestConfigure_Precedence(t *testing.T) {
	cfgFlag, path := settingsFile(t)
	err := os.WriteFile(path, []byte(`{"host":"file.example.com","ports_str":"1","close_ports_str":"2","delay":30}`), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("GKNOCK_OPEN_PORTS", "10, 11")
	t.Setenv("GKNOCK_DELAY", "40")

	cfg, _, err := configure([]string{cfgFlag, "-d", "50", "close"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "file.example.com" {
		t.Errorf("Host = %q, want value from settings file", cfg.Host)
	}
	if cfg.ClosePorts != "2" {
		t.Errorf("ClosePorts = %q, want value from settings file", cfg.ClosePorts)
	}
	if cfg.OpenPorts != "10, 11" {
		t.Errorf("OpenPorts = %q, want value from env", cfg.OpenPorts)
	}
	if cfg.Delay != 50*time.Millisecond {
		t.Errorf("Delay = %v, want flag value", cfg.Delay)
	}
	if cfg.Command != config.CommandClose {
		t.Errorf("Command = %q", cfg.Command)
	}
	if cfg.SettingsPath != path {
		t.Errorf("SettingsPath = %q, want %q", cfg.SettingsPath, path)
	}
}

// TestConfigure_CreatesSettingsFile verifies that a missing settings
// file is created with the defaults.
func TestConfigure_CreatesSettingsFile(t *testing.T) {
	cfgFlag, path := settingsFile(t)
	cfg, _, err := configure([]string{cfgFlag})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Command != config.CommandSession {
		t.Errorf("Command = %q, want session", cfg.Command)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("settings file not created: %v", err)
	}
	if !strings.Contains(string(data), `"ports_str": "5000, 6000, 7000"`) {
		t.Errorf("unexpected settings file:\n%s", data)
	}
}

// TestConfigure_Save verifies --save persists the effective target.
func TestConfigure_Save(t *testing.T) {
	cfgFlag, path := settingsFile(t)
	_, _, err := configure([]string{cfgFlag, "--save", "-H", "10.9.8.7", "--close-ports=", "open"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"host": "10.9.8.7"`, `"close_ports_str": ""`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("settings file missing %s:\n%s", want, data)
		}
	}
}

// TestConfigure_Tunnel verifies -T is resolved into gateway fields.
func TestConfigure_Tunnel(t *testing.T) {
	cfgFlag, _ := settingsFile(t)
	cfg, _, err := configure([]string{cfgFlag, "-T", "ops@bastion:2222", "open"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "bastion" || cfg.TunnelPort != 2222 {
		t.Errorf("unexpected tunnel config: %+v", cfg)
	}

	if _, _, err := configure([]string{cfgFlag, "-T", "ops@bastion:99999"}); err == nil {
		t.Error("expected error for bad tunnel port")
	}
}

// TestConfigure_NegativeDelay verifies the delay flag is validated.
func TestConfigure_NegativeDelay(t *testing.T) {
	cfgFlag, _ := settingsFile(t)
	_, _, err := configure([]string{cfgFlag, "--delay=-5"})
	if err == nil || !strings.Contains(err.Error(), "--delay") {
		t.Fatalf("expected delay error, got %v", err)
	}
}

// TestConfigure_OversizedSettingsDelay verifies that a delay too large
// for a duration is treated as a corrupt settings file, not a flag error.
func TestConfigure_OversizedSettingsDelay(t *testing.T) {
	for _, delay := range []string{"18446744073709551615", "10000000000000"} {
		t.Run(delay, func(t *testing.T) {
			cfgFlag, path := settingsFile(t)
			body := `{"host":"file.example.com","delay":` + delay + `}`
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatal(err)
			}

			cfg, _, err := configure([]string{cfgFlag, "open"})
			if err != nil {
				t.Fatalf("configure: %v", err)
			}
			if cfg.Delay != config.DefaultDelay {
				t.Errorf("Delay = %v, want default %v", cfg.Delay, config.DefaultDelay)
			}
			if cfg.Host != config.DefaultHost {
				t.Errorf("Host = %q, want default", cfg.Host)
			}
		})
	}
}
