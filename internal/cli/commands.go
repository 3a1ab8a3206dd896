package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newCampaignsCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "Manage campaigns",
	}
	cmd.AddCommand(newCampaignCreateCommand(g), newCampaignListCommand(g))
	return cmd
}

func newCampaignCreateCommand(g *globalOptions) *cobra.Command {
	var name, campaignType, objective, description, start, end string

	cmd := &cobra.Command{
		Use:   "create --name <name> --type <entry|survey>",
		Short: "Create a campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			ct, err := campaignTypeFlag(campaignType)
			if err != nil {
				return err
			}
			body := map[string]string{
				"name":          name,
				"campaign_type": ct,
				"objective":     objective,
				"description":   description,
				"date":          start,
				"end_date":      end,
			}
			var out json.RawMessage
			if err := g.client().CreateCampaign(cmd.Context(), body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Campaign name")
	cmd.Flags().StringVar(&campaignType, "type", "entry", "Campaign type: entry or survey")
	cmd.Flags().StringVar(&objective, "objective", "", "Campaign objective")
	cmd.Flags().StringVar(&description, "description", "", "Campaign description")
	cmd.Flags().StringVar(&start, "date", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end-date", "", "End date (YYYY-MM-DD)")
	return cmd
}

// campaignTypeFlag accepts the short aliases as well as the API values.
func campaignTypeFlag(v string) (string, error) {
	switch v {
	case "entry", "Entry Call":
		return "Entry Call", nil
	case "survey", "Post Call Survey":
		return "Post Call Survey", nil
	}
	return "", fmt.Errorf("unknown campaign type %q (want entry or survey)", v)
}

func newCampaignListCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List campaigns, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out json.RawMessage
			if err := g.client().ListCampaigns(cmd.Context(), &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newStatusCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <campaign-id> [audio-id]",
		Short: "Show the status of one audio or of every audio in a campaign",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out json.RawMessage
			var err error
			if len(args) == 2 {
				err = g.client().AudioStatus(cmd.Context(), args[0], args[1], &out)
			} else {
				err = g.client().ListAudios(cmd.Context(), args[0], &out)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newReportCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <campaign-id>",
		Short: "Print the KPI report of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out json.RawMessage
			if err := g.client().Report(cmd.Context(), args[0], &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newExportCommand(g *globalOptions) *cobra.Command {
	var format, table, output string

	cmd := &cobra.Command{
		Use:   "export <campaign-id>",
		Short: "Download a campaign export as csv or xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := g.client().Export(cmd.Context(), args[0], format, table, w); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or xlsx")
	cmd.Flags().StringVar(&table, "table", "", "Table to export: calls or summary (xlsx default: both)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
