package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"classaudio/internal/export"
	"classaudio/internal/view"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var cachedOnly bool
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the lecture notes as markdown",
		Long: `Export fetches the latest notes from the backend and writes them as a
markdown document. When the backend cannot be reached the cached notes are
used instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			c, err := ctx.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			m, _ := ctx.newManager(c, cmd.ErrOrStderr(), view.Nop{})

			content, err := m.Export(cmd.Context(), cachedOnly)
			if err != nil {
				if errors.Is(err, export.ErrNothingToExport) {
					return errors.New("no notes to export yet")
				}
				return err
			}

			out := cmd.OutOrStdout()
			if toStdout {
				fmt.Fprint(out, content)
				return nil
			}
			target := output
			if target == "" {
				target = filepath.Join(".", export.FileName(time.Now()))
			}
			if err := writeExport(target, content); err != nil {
				return err
			}
			fmt.Fprintf(out, "Notes written to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default classaudio-notes-<timestamp>.md)")
	cmd.Flags().BoolVar(&cachedOnly, "cached", false, "Export the cached notes without contacting the backend")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the markdown instead of writing a file")
	return cmd
}
