package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <pattern>",
	Short: "List the fields shared by every index matching a pattern",
	Long: `List the fields a rollup job over the pattern can use. A field is listed
only when every matching index maps it with the same type.

Examples:
  rollupctl fields 'sales-*'
  rollupctl fields 'sales-*' --type numeric`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldType, _ := cmd.Flags().GetString("type")
		fields, err := serviceClient(cmd).Fields(cmd.Context(), args[0], fieldType)
		if err != nil {
			return fmt.Errorf("failed to list fields: %w", err)
		}

		out := printer(cmd)
		if ok, err := out.Print(outputFormat(cmd), fields); ok {
			return err
		}
		if len(fields) == 0 {
			out.Info("No fields found for %s", args[0])
			return nil
		}

		table := output.NewTable([]string{"Field", "Type", "Mapping"})
		for _, f := range fields {
			table.AddRow([]string{f.Path, f.Type, f.RawType})
		}
		table.Render(out.Out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)

	fieldsCmd.Flags().String("type", "", "only fields of this type: date, numeric, keyword, text")
}
