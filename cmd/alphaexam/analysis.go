package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alphaexam/alphaexam-backend/internal/analysis"
	"github.com/alphaexam/alphaexam-backend/internal/client"
	"github.com/spf13/cobra"
)

func analysisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis <attempt-id>",
		Short: "Show the per-question review of a submitted attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := setup(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return printAnalysis(cmd.Context(), api, args[0], cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

func printAnalysis(ctx context.Context, api *client.Client, attemptID string, w io.Writer, asJSON bool) error {
	detail, err := api.FetchResult(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("fetch result: %w", err)
	}

	report := analysis.Build(detail.Result, detail.Questions, detail.Answers)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.Render(w)
}
