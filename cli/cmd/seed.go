package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/seeder"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
)

var seedCmd = &cobra.Command{
	Use:   "seed <pattern>",
	Short: "Fill the service with random wizard drafts",
	Long: `Generate random but valid rollup jobs over the fields of a pattern and
leave them as drafts, or submit them with --submit.

Examples:
  rollupctl seed 'sales-*' --count 20
  rollupctl seed 'sales-*' --count 5 --seed 42 --submit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		seed, _ := cmd.Flags().GetInt64("seed")
		submit, _ := cmd.Flags().GetBool("submit")
		verbose, _ := cmd.Flags().GetBool("verbose")

		var logger *logging.Logger
		if verbose {
			logger = logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel("info"), "text")
		}

		runner := seeder.NewRunner(serviceClient(cmd), seed, logger)
		report, err := runner.Run(cmd.Context(), seeder.Config{
			Pattern: args[0],
			Count:   count,
			Submit:  submit,
		})
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		out := printer(cmd)
		if ok, err := out.Print(outputFormat(cmd), report); ok {
			return err
		}
		out.Success("Seeding complete: %d drafts, %d submitted", len(report.Drafts), len(report.Submitted))
		if report.Failed > 0 {
			out.Warn("%d sessions failed", report.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntP("count", "c", 10, "number of sessions to create")
	seedCmd.Flags().Int64("seed", 0, "random seed (0 picks one)")
	seedCmd.Flags().Bool("submit", false, "submit the generated jobs")
	seedCmd.Flags().BoolP("verbose", "v", false, "log every session")
}
