package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var oldestFirst bool

	cmd := &cobra.Command{
		Use:   "captions",
		Short: "List cached captions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			c, err := ctx.openCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			captions := c.Captions()
			if limit > 0 && len(captions) > limit {
				captions = captions[:limit]
			}
			out := cmd.OutOrStdout()
			if len(captions) == 0 {
				fmt.Fprintln(out, "No cached captions")
				return nil
			}
			rows := make([][]string, 0, len(captions))
			for i, caption := range captions {
				rows = append(rows, []string{strconv.Itoa(i + 1), caption.Timestamp, caption.Text})
			}
			if oldestFirst {
				for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
					rows[i], rows[j] = rows[j], rows[i]
				}
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Time", "Caption"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft}, map[int]int{2: 80}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum captions to show (0 for all)")
	cmd.Flags().BoolVar(&oldestFirst, "oldest-first", false, "Print the selected captions in arrival order")
	return cmd
}

func newQACommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "qa",
		Short: "List cached question and answer history",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			c, err := ctx.openCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			history := c.QA()
			out := cmd.OutOrStdout()
			if len(history) == 0 {
				fmt.Fprintln(out, "No questions asked yet")
				return nil
			}
			rows := make([][]string, 0, len(history))
			for _, item := range history {
				answer := item.Answer
				if item.Errored {
					answer = "(failed) " + answer
				}
				rows = append(rows, []string{item.Timestamp, item.Question, answer})
			}
			fmt.Fprintln(out, renderTable([]string{"Time", "Question", "Answer"}, rows, nil, map[int]int{1: 40, 2: 60}))
			return nil
		},
	}
}
