package cli

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	server  string
	timeout time.Duration
}

func (o *globalOptions) client() *Client {
	server := o.server
	if server == "" {
		server = "http://localhost:8080"
	}
	return NewClient(server, o.timeout)
}

// NewRootCommand builds the callctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{
		server:  os.Getenv("CALL_INSIGHTS_API"),
		timeout: 60 * time.Second,
	}

	root := &cobra.Command{
		Use:           "callctl",
		Short:         "Operate the call insights API",
		Long:          "callctl creates campaigns, imports call manifests and fetches reports from a running call insights API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "api", opts.server, "Base URL of the API (default http://localhost:8080, env CALL_INSIGHTS_API)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "HTTP timeout per request")

	root.AddCommand(
		newCampaignsCommand(opts),
		newImportCommand(opts),
		newStatusCommand(opts),
		newReportCommand(opts),
		newExportCommand(opts),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
