package logs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeLog(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestLastKeepsTrailingWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classaudio.log")
	writeLog(t, path, "one", "two", "three", "four")

	lines, offset, err := Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if strings.Join(lines, ",") != "three,four" {
		t.Fatalf("unexpected lines %v", lines)
	}
	info, _ := os.Stat(path)
	if offset != info.Size() {
		t.Fatalf("offset %d, want %d", offset, info.Size())
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := Last(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestReadFromLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classaudio.log")
	writeLog(t, path, "first")
	_, offset, _ := Last(path, 0)

	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	_, _ = f.WriteString("second\nthi")
	_ = f.Close()

	lines, next, err := ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 1 || lines[0] != "second" {
		t.Fatalf("unexpected lines %v", lines)
	}

	writeLog(t, path, "rd")
	lines, _, _ = ReadFrom(path, next)
	if len(lines) != 1 || lines[0] != "third" {
		t.Fatalf("partial line not completed: %v", lines)
	}
}

func TestReadFromRestartsAfterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classaudio.log")
	writeLog(t, path, "a long line before rotation")
	_, offset, _ := Last(path, 0)

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, _, err := ReadFrom(path, offset)
	if err != nil || len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("expected restart from the beginning, got %v %v", lines, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classaudio.log")
	writeLog(t, path, "old")
	_, offset, _ := Last(path, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	writeLog(t, path, "new")
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("unexpected followed lines %v", got)
	}
}

func TestFilterAndFormat(t *testing.T) {
	warn := `{"ts":"2024-09-02T09:00:05Z","level":"warn","msg":"reconnecting","component":"stream","event_type":"stream_lost","impact":"captions paused","error_hint":"check the backend"}`
	info := `{"ts":"2024-09-02T09:00:06Z","level":"info","msg":"notes updated","component":"session"}`

	events := Filter{Events: true}
	if !events.Match(warn) || events.Match(info) || events.Match("plain text") {
		t.Fatal("event filter mismatch")
	}
	if !(Filter{}).Match("plain text") {
		t.Fatal("empty filter should pass everything")
	}
	if !(Filter{Component: "Session"}).Match(info) || (Filter{Component: "session"}).Match(warn) {
		t.Fatal("component filter mismatch")
	}

	out := Format(warn)
	for _, want := range []string{"2024-09-02 09:00:05", "WARN [stream] reconnecting (stream_lost)", "impact: captions paused", "hint: check the backend"} {
		if !strings.Contains(out, want) {
			t.Fatalf("formatted line missing %q:\n%s", want, out)
		}
	}
	if Format("plain text") != "plain text" {
		t.Fatal("non-JSON line should be returned unchanged")
	}
}
