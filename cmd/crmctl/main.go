package main

import (
	"encoding/json"
	"fmt"
	"os"

	"crm-insight/config"
	"crm-insight/internal/analytics"
	"crm-insight/internal/app"
	"crm-insight/internal/util"

	"github.com/spf13/cobra"
)

var rootFlags struct {
	kind     string
	sourceID string
	logLevel string
}

var application *app.App

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Query CRM insight reports from the command line",
	Long: `crmctl loads the configured CRM source and prints the same reports the
dashboard API serves, as indented JSON.

The source is taken from the environment (SOURCE_KIND, SOURCE_ID, ...) and can
be overridden with --kind and --source.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			application.Close()
			application = nil
		}
		util.SyncLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.kind, "kind", "k", "", "Source kind: sheet, file or postgres")
	rootCmd.PersistentFlags().StringVarP(&rootFlags.sourceID, "source", "s", "", "Source id: spreadsheet id, workbook path or schema")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if rootFlags.kind != "" {
		cfg.Source.Kind = rootFlags.kind
	}
	if rootFlags.sourceID != "" {
		cfg.Source.ID = rootFlags.sourceID
	}

	if err := util.InitLogger(cfg.Server.Env, rootFlags.logLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	application = a
	return nil
}

func addFilterFlags(cmd *cobra.Command, f *analytics.Filter) {
	cmd.Flags().StringVar(&f.Zone, "zone", "", "Only customers of this zone")
	cmd.Flags().StringVar(&f.Segment, "segment", "", "Only customers of this segment")
	cmd.Flags().StringVar(&f.Month, "month", "", "Only customers whose favourite month is YYYY-MM")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
