package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Saved wizard drafts",
	Long:  "List and discard wizard sessions saved by the service",
}

var draftsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved drafts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		drafts, err := serviceClient(cmd).ListDrafts(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list drafts: %w", err)
		}

		out := printer(cmd)
		if ok, err := out.Print(outputFormat(cmd), drafts); ok {
			return err
		}
		if len(drafts) == 0 {
			out.Info("No drafts found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Job", "Source", "Step", "Mode", "Updated"})
		for _, d := range drafts {
			mode := "create"
			if d.Edit {
				mode = "edit"
			}
			table.AddRow([]string{
				d.ID,
				orDash(d.JobID),
				orDash(d.SourceIndex),
				strconv.Itoa(d.Step) + "/4",
				mode,
				d.UpdatedAt.Local().Format(time.DateTime),
			})
		}
		table.Render(out.Out)
		return nil
	},
}

var draftsDeleteCmd = &cobra.Command{
	Use:     "delete <wizard-id>",
	Aliases: []string{"rm"},
	Short:   "Discard a saved draft",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := serviceClient(cmd).DeleteDraft(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete draft: %w", err)
		}
		printer(cmd).Success("Draft %s deleted", args[0])
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(draftsCmd)

	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsDeleteCmd)
}
