package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/jobfile"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/shell"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Build a rollup job from a YAML job file",
	Long: `Run a job file through the wizard: open a session, apply its actions,
validate every step and submit when the file sets submit: true.

Example job file:
  actions:
    - type: set_job_name
      value: nightly_rollup
    - type: set_source_index
      value: sales-*
    - type: set_target_index
      value: sales_rollup
    - type: set_date_histogram
      field: order_date
      interval_type: calendar
      interval_unit: d
    - type: add_metric
      field: amount
      aggregations: [sum, avg]
  submit: true`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		f, err := jobfile.Load(path)
		if err != nil {
			return err
		}
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			f.Submit = false
		}

		out := printer(cmd)
		res, err := jobfile.Run(cmd.Context(), serviceClient(cmd), f, func(n api.Notification) {
			out.Notify(n.Level, n.Message)
		})
		if err != nil {
			if res != nil {
				reportStep(cmd, res)
				out.Info("Draft %s kept; continue with: rollupctl wizard --resume %s", res.State.ID, res.State.ID)
			}
			return err
		}

		if ok, err := out.Print(outputFormat(cmd), res.State); ok {
			return err
		}
		if res.State.Phase != "submitted" {
			shell.WriteSummary(out.Out, res.State)
			out.Info("Draft %s is ready for review", res.State.ID)
		}
		return nil
	},
}

func reportStep(cmd *cobra.Command, res *api.Result) {
	out := printer(cmd)
	if res.StepResult == nil {
		return
	}
	for _, k := range sortedMessageKeys(res.StepResult.Messages) {
		out.Error("%s: %s", k, res.StepResult.Messages[k])
	}
	for _, k := range sortedMessageKeys(res.StepResult.Warnings) {
		out.Warn("%s: %s", k, res.StepResult.Warnings[k])
	}
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringP("file", "f", "", "job file (YAML)")
	applyCmd.Flags().Bool("dry-run", false, "validate every step without submitting")
	_ = applyCmd.MarkFlagRequired("file")
}

func sortedMessageKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
