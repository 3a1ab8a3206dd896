package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"call-insights-go/internal/dataset"
)

// ImportResult summarizes a manifest import.
type ImportResult struct {
	Registered     int               `json:"registered"`
	AlreadyStarted int               `json:"already_started"`
	Skipped        []dataset.Skipped `json:"skipped,omitempty"`
	Failed         []dataset.Skipped `json:"failed,omitempty"`
}

// Import registers every manifest entry with the API. Per-row failures are
// collected rather than aborting the batch.
func Import(ctx context.Context, c *Client, campaignID string, m *dataset.Manifest, parallel int) *ImportResult {
	res := &ImportResult{Skipped: m.Skipped}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for _, e := range m.Entries {
		g.Go(func() error {
			var out struct {
				AlreadyStarted bool `json:"already_started"`
			}
			err := c.RegisterAudio(gctx, campaignID, RegisterAudio{
				FileName: e.FileName,
				Duration: e.DurationSeconds,
				AudioURL: e.AudioURL,
			}, &out)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed = append(res.Failed, dataset.Skipped{Row: e.Row, Reason: err.Error()})
			case out.AlreadyStarted:
				res.AlreadyStarted++
			default:
				res.Registered++
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func newImportCommand(g *globalOptions) *cobra.Command {
	var campaignID string
	var parallel int

	cmd := &cobra.Command{
		Use:   "import --campaign <id> <manifest.xlsx>",
		Short: "Register every call listed in a spreadsheet manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if campaignID == "" {
				return errors.New("--campaign is required")
			}
			m, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			if len(m.Entries) == 0 {
				return fmt.Errorf("no usable rows in %s", args[0])
			}

			res := Import(cmd.Context(), g.client(), campaignID, m, parallel)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			return res.err(cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign id")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Concurrent registrations")
	return cmd
}

func (r *ImportResult) err(w io.Writer) error {
	if len(r.Failed) == 0 {
		return nil
	}
	fmt.Fprintf(w, "%d row(s) failed to register\n", len(r.Failed))
	return errors.New("import incomplete")
}
