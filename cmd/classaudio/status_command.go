package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"classaudio/internal/backend"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend status and cached session summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg := ctx.configValue()

			reqCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			c, err := ctx.openCache(reqCtx, false)
			if err != nil {
				return err
			}
			sum := c.Summary()

			recording := "unknown"
			backendID := "unknown"
			reachable := "no"
			status, statusErr := ctx.backendClient().Status(reqCtx)
			if statusErr == nil {
				reachable = "yes"
				recording = yesNo(status.RecordingActive)
				backendID = orDash(status.SessionID)
			} else if !backend.IsUnavailable(statusErr) {
				reachable = "error: " + statusErr.Error()
			}

			match := "-"
			if statusErr == nil && sum.SessionID != "" && status.SessionID != "" {
				match = yesNo(sum.SessionID == status.SessionID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPairs([][2]string{
				{"Backend", cfg.Backend.BaseURL},
				{"Reachable", reachable},
				{"Recording", recording},
				{"Backend session", backendID},
				{"Cached session", orDash(sum.SessionID)},
				{"Session matches", match},
				{"Captions", strconv.Itoa(sum.Captions)},
				{"Questions", strconv.Itoa(sum.QA)},
				{"Note batches", strconv.Itoa(sum.Batches)},
				{"Store", sum.Store},
			}))
			return nil
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
