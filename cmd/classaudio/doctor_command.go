package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"classaudio/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, cache store and backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			results := preflight.RunAll(cmd.Context(), ctx.configValue(), ctx.backendClient())
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "ok"
				if !r.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Result", "Detail"}, rows, nil, map[int]int{2: 70}))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
