package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/shell"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Create or edit a rollup job interactively",
	Long: `Open a wizard session and walk through the four steps:
collections, aggregations, schedule and review.

Examples:
  # Create a new rollup job
  rollupctl wizard

  # Edit an existing job
  rollupctl wizard --job nightly_rollup

  # Continue a saved draft
  rollupctl wizard --resume 5d1c0c7e-8f2a-4c55-9b0e-2f4d7e3a9b11`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, _ := cmd.Flags().GetString("job")
		resume, _ := cmd.Flags().GetString("resume")
		if jobID != "" && resume != "" {
			return fmt.Errorf("--job and --resume cannot be combined")
		}

		svc := serviceClient(cmd)
		var (
			res *api.Result
			err error
		)
		if resume != "" {
			res, err = svc.Get(cmd.Context(), resume)
		} else {
			res, err = svc.Create(cmd.Context(), jobID)
		}
		if err != nil {
			return fmt.Errorf("failed to open wizard: %w", err)
		}

		out := printer(cmd)
		for _, n := range res.Notifications {
			out.Notify(n.Level, n.Message)
		}
		out.Info("Wizard %s. Type 'help' for commands.", res.State.ID)

		return shell.New(svc, *res, out).Run(cmd.Context(), cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(wizardCmd)

	wizardCmd.Flags().String("job", "", "ID of an existing job to edit")
	wizardCmd.Flags().String("resume", "", "ID of a saved draft to continue")
}
