package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/shell"
)

var getCmd = &cobra.Command{
	Use:   "get <wizard-id>",
	Short: "Show a wizard session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := serviceClient(cmd).Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get wizard: %w", err)
		}

		out := printer(cmd)
		if ok, err := out.Print(outputFormat(cmd), res.State); ok {
			return err
		}
		fmt.Fprintf(out.Out, "Wizard:      %s (%s, step %d of 4)\n", res.State.ID, res.State.Phase, res.State.CurrentStep)
		shell.WriteSummary(out.Out, res.State)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
