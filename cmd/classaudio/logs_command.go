package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"classaudio/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the classaudio log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			path := ctx.configValue().LogFile()
			if path == "" {
				return fmt.Errorf("file logging is disabled (paths.log_dir is empty)")
			}

			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !filter.Match(line) {
					return
				}
				if !raw {
					line = logs.Format(line)
				}
				fmt.Fprintln(out, line)
			}

			window := lines
			if filter.Events || filter.Component != "" {
				// Filtered output scans a wider window to find N matches.
				window = lines * 20
			}
			tail, offset, err := logs.Last(path, window)
			if err != nil {
				return err
			}
			var matched []string
			for _, line := range tail {
				if filter.Match(line) {
					matched = append(matched, line)
				}
			}
			if len(matched) > lines {
				matched = matched[len(matched)-lines:]
			}
			for _, line := range matched {
				emit(line)
			}
			if !follow {
				return nil
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return logs.Follow(sigCtx, path, offset, 500*time.Millisecond, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unformatted")
	cmd.Flags().BoolVar(&filter.Events, "events", false, "Only show warnings and errors tagged with an event type")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show one component (session, stream, poll, backend, cache)")
	return cmd
}
