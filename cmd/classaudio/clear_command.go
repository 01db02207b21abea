package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"classaudio/internal/view"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	var remote bool
	var qaOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached captions, answers and notes",
		Long: `Clear removes the cached records while keeping the session id. With
--remote the backend's notes are cleared as well; if that request fails
nothing is removed locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			if remote && qaOnly {
				return fmt.Errorf("--remote and --qa cannot be combined")
			}

			c, err := ctx.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			m, _ := ctx.newManager(c, cmd.ErrOrStderr(), view.Nop{})

			out := cmd.OutOrStdout()
			if qaOnly {
				n, err := m.ClearQA()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d questions\n", n)
				return nil
			}
			if err := m.Clear(cmd.Context(), remote); err != nil {
				return err
			}
			fmt.Fprintln(out, "Cache cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also clear the backend's notes")
	cmd.Flags().BoolVar(&qaOnly, "qa", false, "Clear only the question history")
	return cmd
}
