package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage wizard service profiles",
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name> <service-url>",
	Short: "Save a profile and make it current",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.SaveProfile(args[0], args[1]); err != nil {
			return err
		}
		printer(cmd).Success("Profile '%s' now points at %s", args[0], args[1])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := printer(cmd)
		if ok, err := out.Print(outputFormat(cmd), cfg.Profiles); ok {
			return err
		}
		if len(cfg.Profiles) == 0 {
			out.Info("No profiles; using %s", cfg.ServiceURL(""))
			return nil
		}

		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		table := output.NewTable([]string{"", "Name", "Service URL"})
		for _, name := range names {
			current := ""
			if name == cfg.CurrentProfile {
				current = "*"
			}
			table.AddRow([]string{current, name, cfg.Profiles[name].ServiceURL})
		}
		table.Render(out.Out)
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveProfile(args[0]); err != nil {
			return err
		}
		printer(cmd).Success("Profile '%s' removed", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileRemoveCmd)
}
