package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ogulcanaydogan/budget-guardian/pkg/llm"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect text-generation backends and their cost",
}

var llmUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Report tokens and cost spent on generated content",
	RunE:  runLLMUsage,
}

var llmProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List backends and model pricing",
	RunE:  runLLMProviders,
}

func init() {
	rootCmd.AddCommand(llmCmd)
	llmCmd.AddCommand(llmUsageCmd, llmProvidersCmd)

	llmUsageCmd.Flags().StringP("period", "P", "monthly", "Report period (daily, weekly, monthly)")
	llmUsageCmd.Flags().StringP("provider", "p", "", "Filter by provider")
	llmUsageCmd.Flags().String("purpose", "", "Filter by purpose (alert, summary, receipt, advice)")
}

func runLLMUsage(cmd *cobra.Command, _ []string) error {
	period, _ := cmd.Flags().GetString("period")
	provider, _ := cmd.Flags().GetString("provider")
	purpose, _ := cmd.Flags().GetString("purpose")

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	start, end := model.PeriodBounds(model.BudgetPeriod(period), time.Now())
	summary, err := a.Store.AggregateUsage(cmd.Context(), model.UsageFilter{
		Provider:  provider,
		Purpose:   purpose,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return fmt.Errorf("aggregate usage: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== LLM Usage (%s) ===\n", period)
	fmt.Fprintf(out, "Period: %s to %s\n\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Fprintf(out, "Total Cost:          $%.4f\n", summary.TotalCostUSD)
	fmt.Fprintf(out, "Total Input Tokens:  %s\n", humanize.Comma(summary.TotalInputTokens))
	fmt.Fprintf(out, "Total Output Tokens: %s\n", humanize.Comma(summary.TotalOutputTokens))
	fmt.Fprintf(out, "Calls:               %d (%d failed)\n", summary.CallCount, summary.FailedCount)

	if len(summary.ByPurpose) > 0 {
		purposes := make([]string, 0, len(summary.ByPurpose))
		for p := range summary.ByPurpose {
			purposes = append(purposes, p)
		}
		sort.Strings(purposes)

		fmt.Fprintf(out, "\nBy Purpose:\n")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  PURPOSE\tCOST\n")
		for _, p := range purposes {
			fmt.Fprintf(w, "  %s\t$%.4f\n", p, summary.ByPurpose[p])
		}
		return w.Flush()
	}
	return nil
}

func runLLMProviders(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pricing := llm.DefaultPricing()
	if a.Config.LLM.PricingFile != "" {
		if pricing, err = llm.LoadPricing(a.Config.LLM.PricingFile); err != nil {
			return err
		}
	}

	configured := make(map[string]bool)
	for _, name := range a.Backends.List() {
		configured[name] = true
	}

	out := cmd.OutOrStdout()
	if a.Config.LLM.Provider == "" {
		fmt.Fprintln(out, "No provider selected; alerts and summaries use built-in templates.")
	} else {
		fmt.Fprintf(out, "Selected provider: %s\n", a.Config.LLM.Provider)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PROVIDER\tCONFIGURED\tMODEL\tINPUT ($/1M)\tOUTPUT ($/1M)\n")
	for _, p := range pricing.Providers {
		status := "no"
		if configured[p.Provider] {
			status = "yes"
		}
		for _, m := range p.Models {
			fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t$%.2f\n",
				p.Provider, status, m.Model, m.InputPerMillion, m.OutputPerMillion,
			)
		}
	}
	return w.Flush()
}
