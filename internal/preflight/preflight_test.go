package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classaudio/internal/backend"
	"classaudio/internal/config"
)

type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Store.Backend = config.StoreFile
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1 byte minimum, got %s", result.Detail)
	}
	result := CheckFreeSpace("space", dir, 1<<62)
	if result.Passed || !strings.Contains(result.Detail, "need") {
		t.Fatalf("expected failure with an impossible minimum, got %+v", result)
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckBackend(t *testing.T) {
	ok := CheckBackend(context.Background(), healthFunc(func(context.Context) error { return nil }))
	if !ok.Passed {
		t.Fatalf("expected pass, got %s", ok.Detail)
	}

	down := CheckBackend(context.Background(), healthFunc(func(context.Context) error {
		return &backend.RequestError{Op: "health", Err: backend.ErrUnavailable}
	}))
	if down.Passed || !strings.Contains(down.Detail, "unreachable") {
		t.Fatalf("expected unreachable detail, got %+v", down)
	}

	slow := CheckBackend(context.Background(), healthFunc(func(context.Context) error {
		return context.DeadlineExceeded
	}))
	if slow.Passed || !strings.Contains(slow.Detail, "timed out") {
		t.Fatalf("expected timeout detail, got %+v", slow)
	}
}

func TestCheckStoreFile(t *testing.T) {
	cfg := testConfig(t)
	result := CheckStore(context.Background(), cfg)
	if !result.Passed || !strings.HasPrefix(result.Detail, "file:") {
		t.Fatalf("expected file store to open, got %+v", result)
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	cfg := testConfig(t)
	results := RunAll(context.Background(), cfg, healthFunc(func(context.Context) error {
		return errors.New("backend status degraded")
	}))
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	if len(results) != 5 {
		t.Fatalf("expected five checks, got %v", names)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Backend" {
		t.Fatalf("expected only backend to fail, got %+v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if got := RunAll(context.Background(), nil, nil); got != nil {
		t.Fatalf("expected nil results, got %+v", got)
	}
}
