package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/config"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rollupctl",
	Short: "Rollup job wizard CLI",
	Long: `rollupctl is the command-line interface for the rollup job wizard.

Build rollup jobs step by step in an interactive session, script them from
YAML job files, inspect index fields and manage saved drafts.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints the error, if any.
func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.New(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr()).Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.rollup/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: the current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

func profileName(cmd *cobra.Command) string {
	profile, _ := cmd.Flags().GetString("profile")
	if profile == "" {
		profile = cfg.CurrentProfile
	}
	return profile
}

func serviceClient(cmd *cobra.Command) *api.Client {
	return api.NewClient(cfg.ServiceURL(profileName(cmd)))
}

func printer(cmd *cobra.Command) *output.Printer {
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}
