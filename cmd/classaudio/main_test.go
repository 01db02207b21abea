package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"classaudio/internal/config"
	"classaudio/internal/testsupport"
)

type fakeBackend struct {
	mu        sync.Mutex
	sessionID string
	recording bool
	notes     string
	calls     map[string]int
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls[r.URL.Path]++
	notes := b.notes
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/health":
		_, _ = io.WriteString(w, `{"status":"healthy","audio_service":"initialized","llm_service":"initialized"}`)
	case "/api/status":
		running := "false"
		if b.recording {
			running = "true"
		}
		_, _ = io.WriteString(w, `{"audio_service":{"is_running":`+running+`},"llm_service":{"session_id":"`+b.sessionID+`"}}`)
	case "/api/structured-content":
		_, _ = io.WriteString(w, `{"total":1,"returned":1,"content":`+notes+`}`)
	case "/api/structured-content/clear":
		_, _ = io.WriteString(w, `{"status":"success","message":"cleared"}`)
	case "/api/keywords/generate":
		_, _ = io.WriteString(w, `{"topic":"linear algebra","prof_words":"matrix, eigenvalue"}`)
	case "/api/qa/ask":
		_, _ = io.WriteString(w, `{"question":"q","answer":"a"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"not found"}`)
	}
}

type cliTestEnv struct {
	cfg        *config.Config
	backend    *fakeBackend
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	fb := &fakeBackend{
		sessionID: "20240902_090000",
		notes:     `[]`,
		calls:     make(map[string]int),
	}
	srv := httptest.NewServer(http.HandlerFunc(fb.handler))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(srv.URL))
	cfg.Backend.StreamURL = ""
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(configPath, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, backend: fb, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substring string) {
	t.Helper()
	if !strings.Contains(output, substring) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", substring, output)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsEffectiveValues(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Backend.BaseURL)
	requireContains(t, out, "stream_url")
}

func TestStatusReportsBackendAndCache(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Reachable")
	requireContains(t, out, "20240902_090000")
	requireContains(t, out, "Cached session")
}

func TestCaptionsAndQAEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"captions"}, env.configPath, "")
	if err != nil {
		t.Fatalf("captions: %v", err)
	}
	requireContains(t, out, "No cached captions")

	out, _, err = runCLI(t, []string{"qa"}, env.configPath, "")
	if err != nil {
		t.Fatalf("qa: %v", err)
	}
	requireContains(t, out, "No questions asked yet")
}

func TestExportWritesMarkdown(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.mu.Lock()
	env.backend.notes = `[{"coursework":["Problem set 3 due Friday"],"knowledge":["Eigenvectors keep direction"],"question":[]}]`
	env.backend.mu.Unlock()

	target := filepath.Join(t.TempDir(), "notes.md")
	out, _, err := runCLI(t, []string{"export", "--output", target}, env.configPath, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	requireContains(t, string(data), "## Batch 1")
	requireContains(t, string(data), "- Problem set 3 due Friday")

	// The fetched notes were cached, so a cached-only export needs no backend.
	out, _, err = runCLI(t, []string{"export", "--cached", "--stdout"}, env.configPath, "")
	if err != nil {
		t.Fatalf("export --cached: %v", err)
	}
	requireContains(t, out, "Eigenvectors keep direction")
}

func TestExportWithoutNotesFails(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"export", "--stdout"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "no notes") {
		t.Fatalf("expected no notes error, got %v", err)
	}
}

func TestClearRemoteCallsBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"clear", "--remote"}, env.configPath, "")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Cache cleared")
	if got := env.backend.count("/api/structured-content/clear"); got != 1 {
		t.Fatalf("expected one remote clear, got %d", got)
	}

	if _, _, err := runCLI(t, []string{"clear", "--remote", "--qa"}, env.configPath, ""); err == nil {
		t.Fatal("expected conflicting flags to fail")
	}
}

func TestRunSessionCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	input := strings.Join([]string{
		"help",
		"topic linear algebra",
		"notes",
		"status",
		"bogus",
		"quit",
	}, "\n") + "\n"

	out, _, err := runCLI(t, []string{"run"}, env.configPath, input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Commands:")
	requireContains(t, out, "no notes yet")
	requireContains(t, out, "linear algebra")
	requireContains(t, out, `unknown command "bogus"`)
	if got := env.backend.count("/api/keywords/generate"); got != 1 {
		t.Fatalf("expected one topic request, got %d", got)
	}
	if got := env.backend.count("/health"); got != 1 {
		t.Fatalf("expected reconcile health check, got %d", got)
	}

	// The adopted session id is persisted for the next run.
	out, _, err = runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Session matches")
	requireContains(t, out, "yes")
}

func TestRunEndsAtEndOfInput(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run"}, env.configPath, "notes\n"); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestDoctorListsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, _ := runCLI(t, []string{"doctor"}, env.configPath, "")
	requireContains(t, out, "Cache store")
	requireContains(t, out, "Backend")
}

func TestLogsShowsSessionEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run"}, env.configPath, "quit\n"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "200", "--component", "session"}, env.configPath, "")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "[session]")
	requireContains(t, out, "shut down")
}
