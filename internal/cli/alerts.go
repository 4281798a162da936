package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ogulcanaydogan/budget-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and trigger budget alerts",
}

var alertsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded alert events",
	RunE:  runAlertsHistory,
}

var alertsDispatchCmd = &cobra.Command{
	Use:   "dispatch <budget_id>",
	Short: "Evaluate one budget and send an alert if it is due",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsDispatch,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate every budget and send due alerts",
	RunE:  runSweep,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Send the weekly budget summary to every user",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(alertsCmd, sweepCmd, summaryCmd)
	alertsCmd.AddCommand(alertsHistoryCmd, alertsDispatchCmd)

	alertsHistoryCmd.Flags().StringP("user", "u", "", "Filter by user ID")
	alertsHistoryCmd.Flags().StringP("budget", "b", "", "Filter by budget ID")
	alertsHistoryCmd.Flags().Duration("since", 0, "Only show alerts newer than this (e.g. 72h)")
}

func runAlertsHistory(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")
	budget, _ := cmd.Flags().GetString("budget")
	since, _ := cmd.Flags().GetDuration("since")

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	filter := model.AlertFilter{UserID: user, BudgetID: budget}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}
	events, err := a.Store.ListAlertEvents(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No alerts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tUSER\tBUDGET\tLEVEL\tUSAGE\tSENT TO\n")
	for _, e := range events {
		sentTo := e.EmailSentTo
		if sentTo == "" {
			sentTo = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\t%s\n",
			humanize.Time(e.CreatedAt), e.UserID, e.BudgetID,
			e.Bucket.Level(), e.PercentageUsed, sentTo,
		)
	}
	return w.Flush()
}

func runAlertsDispatch(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Dispatcher.Dispatch(cmd.Context(), dispatch.Request{BudgetID: args[0]})
	if err != nil {
		return err
	}
	return printOutcomes(cmd.OutOrStdout(), []model.AlertOutcome{out})
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, err := a.Dispatcher.Sweep(cmd.Context())
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No budgets configured.")
		return nil
	}
	return printOutcomes(cmd.OutOrStdout(), outcomes)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, err := a.Dispatcher.WeeklySummaries(cmd.Context())
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No budgets configured.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\tBUDGETS\tSTATUS\tSOURCE\tEMAIL\n")
	for _, o := range outcomes {
		status := string(o.Status)
		if o.Error != "" {
			status += ": " + o.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", o.UserID, o.BudgetCount, status, dash(o.ContentSource), dash(o.Email))
	}
	return w.Flush()
}

func printOutcomes(out io.Writer, outcomes []model.AlertOutcome) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\tCATEGORY\tUSAGE\tBUCKET\tSTATUS\tSENT TO\n")
	for _, o := range outcomes {
		status := string(o.Status)
		if o.Error != "" {
			status += ": " + o.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
			o.UserID, o.Category, o.Percentage, o.Bucket, status, dash(o.EmailSentTo),
		)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
