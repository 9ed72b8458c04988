package main

import (
	"fmt"
	"os"
	"time"

	"crm-insight/internal/analytics"
	"crm-insight/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var overviewFlags analytics.Filter

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print KPIs, segments and product rankings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overview, err := application.Service.Overview(cmd.Context(), overviewFlags)
		if err != nil {
			return err
		}
		return printJSON(cmd, overview)
	},
}

var customersFlags struct {
	filter analytics.Filter
	code   string
	name   string
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customers, optionally searched by code or name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		customers, err := application.Service.Customers(cmd.Context(), customersFlags.filter, customersFlags.code, customersFlags.name)
		if err != nil {
			return err
		}
		return printJSON(cmd, customers)
	},
}

var customerFlags analytics.Filter

var customerCmd = &cobra.Command{
	Use:   "customer <code>",
	Short: "Print the detail view of one customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := application.Service.Customer(cmd.Context(), args[0], customerFlags)
		if err != nil {
			return err
		}
		return printJSON(cmd, detail)
	},
}

var vendorsFlags analytics.Filter

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Compare zones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vendors, err := application.Service.Vendors(cmd.Context(), vendorsFlags)
		if err != nil {
			return err
		}
		return printJSON(cmd, vendors)
	},
}

var vendorFlags analytics.Filter

var vendorCmd = &cobra.Command{
	Use:   "vendor <zone>",
	Short: "Print the detail view of one zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := application.Service.Vendor(cmd.Context(), args[0], vendorFlags)
		if err != nil {
			return err
		}
		return printJSON(cmd, detail)
	},
}

var alertsFlags struct {
	filter        analytics.Filter
	recencyDays   int
	effectiveness float64
	csv           string
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Classify customers needing attention",
	Long: `Classify customers by recency and delivery effectiveness.

With --csv the alerted customers are written as a visit list instead of
printing the report.`,
	Args: cobra.NoArgs,
	RunE: runAlerts,
}

func runAlerts(cmd *cobra.Command, args []string) error {
	t := application.Service.DefaultThresholds()
	if alertsFlags.recencyDays != 0 {
		t.RecencyDays = alertsFlags.recencyDays
	}
	if alertsFlags.effectiveness != 0 {
		t.Effectiveness = alertsFlags.effectiveness
	}

	if alertsFlags.csv == "" {
		report, err := application.Service.Alerts(cmd.Context(), alertsFlags.filter, t)
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	}

	f, err := os.Create(alertsFlags.csv)
	if err != nil {
		return fmt.Errorf("failed to create visit list: %w", err)
	}
	defer f.Close()

	n, err := application.Service.ExportVisitList(cmd.Context(), f, alertsFlags.filter, t)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d customers to %s\n", n, alertsFlags.csv)
	return nil
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cached dataset of the source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Service.Invalidate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %q\n", application.Service.SourceID())
		return nil
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Publish SOURCE_UPDATED so running servers reload the source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !application.Config.Kafka.Enabled {
			return fmt.Errorf("kafka is disabled, set KAFKA_ENABLED=true")
		}

		event := &models.SourceUpdatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSourceUpdated,
				Timestamp: time.Now(),
			},
			SourceID: application.Service.SourceID(),
		}
		if err := application.Publisher.PublishSourceUpdated(cmd.Context(), event); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s for %q\n", event.EventID, event.SourceID)
		return nil
	},
}

func init() {
	addFilterFlags(overviewCmd, &overviewFlags)

	addFilterFlags(customersCmd, &customersFlags.filter)
	customersCmd.Flags().StringVar(&customersFlags.code, "code", "", "Exact customer code")
	customersCmd.Flags().StringVar(&customersFlags.name, "name", "", "Case-insensitive name substring")

	addFilterFlags(customerCmd, &customerFlags)
	addFilterFlags(vendorsCmd, &vendorsFlags)
	addFilterFlags(vendorCmd, &vendorFlags)

	addFilterFlags(alertsCmd, &alertsFlags.filter)
	alertsCmd.Flags().IntVar(&alertsFlags.recencyDays, "recency-days", 0, "Recency threshold in days (30-180)")
	alertsCmd.Flags().Float64Var(&alertsFlags.effectiveness, "effectiveness", 0, "Effectiveness threshold (0.50-0.95)")
	alertsCmd.Flags().StringVar(&alertsFlags.csv, "csv", "", "Write the visit list to this CSV file")

	rootCmd.AddCommand(overviewCmd, customersCmd, customerCmd, vendorsCmd, vendorCmd, alertsCmd, invalidateCmd, notifyCmd)
}
