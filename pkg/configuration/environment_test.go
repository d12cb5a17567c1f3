package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "ROTATION_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "pkg", "crud")
	requireMkdirAll(t, sub)

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("ROTATION_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("ROTATION_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestParse_DefaultsAndValidation(t *testing.T) {
	t.Setenv("ROTATION_LOCKER", "redis")
	t.Setenv("PORT", "4100")
	t.Setenv("GO_APP_ENV", Production)

	c, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Rotation.Locker != "redis" {
		t.Fatalf("expected redis locker, got %q", c.Rotation.Locker)
	}
	if c.SocketAddress != ":4100" {
		t.Fatalf("expected production socket address, got %q", c.SocketAddress)
	}
	if c.Rotation.LedgerMaxAttempts != 5 {
		t.Fatalf("expected default ledger attempts 5, got %d", c.Rotation.LedgerMaxAttempts)
	}
	if c.Logger() == nil {
		t.Fatal("expected console logger")
	}
}

func TestParse_RejectsUnknownLocker(t *testing.T) {
	t.Setenv("ROTATION_LOCKER", "etcd")

	if _, err := Parse(); err == nil {
		t.Fatal("expected error for unknown locker")
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
