package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"classaudio/internal/export"
	"classaudio/internal/logging"
	"classaudio/internal/session"
	"classaudio/internal/view"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var autoStart bool
	var topic string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach to the backend and run an interactive lecture session",
		Long: `Run reconciles the cached session with the backend, then reads commands
from standard input. Live captions, answers and note batches are printed as
they arrive. Type "help" for the command list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := ctx.openCacheOrMemory(sigCtx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			m, _ := ctx.newManager(store, cmd.ErrOrStderr(), view.NewConsole(out))

			outcome, err := m.Reconcile(sigCtx)
			if err != nil {
				ctx.log().Info("continuing without reconciliation", logging.Error(err))
			} else {
				ctx.log().Info("session reconciled",
					logging.String("action", string(outcome.Action)),
					logging.String(logging.FieldSessionID, outcome.SessionID),
					logging.Bool("restored", outcome.Restored))
			}

			r := &repl{m: m, out: out, now: time.Now}
			if topic != "" {
				r.exec(sigCtx, "topic "+topic)
			}
			if autoStart && !m.Snapshot().Recording {
				r.exec(sigCtx, "start")
			}
			return r.loop(sigCtx, cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&autoStart, "start", false, "Start recording immediately")
	cmd.Flags().StringVar(&topic, "topic", "", "Set the lecture topic before reading commands")
	return cmd
}

const replHelp = `Commands:
  start               start recording
  stop                stop recording and fetch the final notes
  ask <question>      ask about the lecture so far
  topic <topic>       generate a vocabulary for the lecture topic
  notes               show the current notes
  refresh             fetch notes now
  export [path]       write the notes as markdown
  clear [qa|remote]   clear cached records (qa: answers only, remote: backend notes too)
  status              show connection and cache state
  help                show this list
  quit                leave the session`

type repl struct {
	m   *session.Manager
	out io.Writer
	now func() time.Time

	asks sync.WaitGroup
}

// loop reads commands until quit, end of input or ctx cancellation.
func (r *repl) loop(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		r.asks.Wait()
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read commands: %w", err)
			}
			return nil
		case line := <-lines:
			if r.exec(ctx, line) {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (r *repl) exec(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "":
	case "start":
		r.report(r.m.Start(ctx))
	case "stop":
		r.report(r.m.Stop(ctx))
	case "ask":
		r.asks.Add(1)
		go func() {
			defer r.asks.Done()
			if _, err := r.m.Ask(ctx, arg); errors.Is(err, session.ErrEmptyQuestion) || errors.Is(err, session.ErrQuestionPending) {
				fmt.Fprintf(r.out, "ask: %v\n", err)
			}
		}()
	case "topic":
		_, err := r.m.SetTopic(ctx, arg)
		if errors.Is(err, session.ErrEmptyTopic) {
			fmt.Fprintln(r.out, "topic: enter a lecture topic")
		}
	case "notes":
		fmt.Fprintln(r.out, view.RenderNotes(r.m.Cache().Notes()))
	case "refresh":
		changed, err := r.m.Refresh(ctx)
		if err == nil && !changed {
			fmt.Fprintln(r.out, "notes unchanged")
		}
	case "export":
		r.export(ctx, arg)
	case "clear":
		r.clear(ctx, arg)
	case "status":
		r.status()
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(r.out, "unknown command %q (type help)\n", name)
	}
	return false
}

func (r *repl) report(err error) {
	if errors.Is(err, session.ErrShutdown) {
		fmt.Fprintln(r.out, "session is shut down")
	}
}

func (r *repl) export(ctx context.Context, path string) {
	content, err := r.m.Export(ctx, false)
	if err != nil {
		if !errors.Is(err, export.ErrNothingToExport) {
			fmt.Fprintf(r.out, "export: %v\n", err)
		}
		return
	}
	if path == "" {
		path = export.FileName(r.now())
	}
	if err := writeExport(path, content); err != nil {
		fmt.Fprintf(r.out, "export: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "notes written to %s\n", path)
}

func (r *repl) clear(ctx context.Context, arg string) {
	switch arg {
	case "qa":
		n, err := r.m.ClearQA()
		if err == nil {
			fmt.Fprintf(r.out, "removed %d questions\n", n)
		}
	case "remote":
		_ = r.m.Clear(ctx, true)
	case "":
		_ = r.m.Clear(ctx, false)
	default:
		fmt.Fprintln(r.out, "usage: clear [qa|remote]")
	}
}

func (r *repl) status() {
	s := r.m.Snapshot()
	topic := s.Topic
	if topic == "" {
		topic = "-"
	}
	persist := "ok"
	if s.LastPersistErr != nil {
		persist = s.LastPersistErr.Error()
	}
	fmt.Fprintln(r.out, renderPairs([][2]string{
		{"Recording", yesNo(s.Recording)},
		{"Stream", s.Connection.String()},
		{"Reconnect attempts", fmt.Sprintf("%d (retry pending: %s)", s.Attempts, yesNo(s.RetryPending))},
		{"Polling", fmt.Sprintf("%s (%d fetches)", yesNo(s.Polling), s.PollFetches)},
		{"Topic", topic},
		{"Session", orDash(s.Cache.SessionID)},
		{"Cached", fmt.Sprintf("%d captions, %d questions, %d batches", s.Cache.Captions, s.Cache.QA, s.Cache.Batches)},
		{"Store", s.Cache.Store},
		{"Persistence", persist},
	}))
}

func writeExport(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
