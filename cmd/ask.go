package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAskCmd(opts *options) *cobra.Command {
	var documentID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed documents",
		Long: `Ask a question and print the answer with the fragments it was based on.

Examples:
  docqa ask "What is the main contribution of the paper?"
  docqa ask --document 3f1c... "Who are the authors?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			service, closeStore, err := opts.newService(ctx, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			spinner := getSpinner("Searching documents...")
			answer, err := service.Ask(ctx, question, documentID)
			_ = spinner.Finish()
			fmt.Fprint(cmd.OutOrStdout(), "\r")
			if err != nil {
				return err
			}

			assistant := color.New(color.FgCyan).FprintfFunc()
			assistant(cmd.OutOrStdout(), "\n%s\n", answer.Answer)

			if len(answer.Sources) > 0 {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "\nSources:")
				for i, src := range answer.Sources {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, src)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Restrict retrieval to one document id")

	return cmd
}
