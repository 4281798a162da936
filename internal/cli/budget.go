package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/budget-guardian/pkg/alerting"
	"github.com/ogulcanaydogan/budget-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage category budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a budget",
	RunE:  runBudgetSet,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets",
	RunE:  runBudgetList,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show utilization and alert tier of each budget",
	RunE:  runBudgetStatus,
}

var budgetDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetDelete,
}

var budgetImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import budgets and contacts from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetImport,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd, budgetListCmd, budgetStatusCmd, budgetDeleteCmd, budgetImportCmd)

	budgetSetCmd.Flags().String("id", "", "Budget ID (generated when empty)")
	budgetSetCmd.Flags().StringP("user", "u", "", "Owning user ID")
	budgetSetCmd.Flags().StringP("category", "c", "", "Spending category")
	budgetSetCmd.Flags().StringP("total", "t", "", "Budget ceiling")
	budgetSetCmd.Flags().StringP("spent", "s", "0", "Amount already spent")
	budgetSetCmd.Flags().StringP("period", "P", "monthly", "Budget period (daily, weekly, monthly)")
	_ = budgetSetCmd.MarkFlagRequired("user")
	_ = budgetSetCmd.MarkFlagRequired("category")
	_ = budgetSetCmd.MarkFlagRequired("total")

	for _, c := range []*cobra.Command{budgetListCmd, budgetStatusCmd} {
		c.Flags().StringP("user", "u", "", "Filter by user ID")
	}
}

func runBudgetSet(cmd *cobra.Command, _ []string) error {
	id, _ := cmd.Flags().GetString("id")
	user, _ := cmd.Flags().GetString("user")
	category, _ := cmd.Flags().GetString("category")
	totalStr, _ := cmd.Flags().GetString("total")
	spentStr, _ := cmd.Flags().GetString("spent")
	period, _ := cmd.Flags().GetString("period")

	total, err := parseAmountFlag("total", totalStr)
	if err != nil {
		return err
	}
	spent, err := parseAmountFlag("spent", spentStr)
	if err != nil {
		return err
	}

	budget := &model.Budget{
		ID:       id,
		UserID:   user,
		Category: category,
		Total:    total,
		Spent:    spent,
		Period:   model.BudgetPeriod(period),
	}
	if err := dispatch.Validate(budget); err != nil {
		return err
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.SetBudget(cmd.Context(), budget); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Budget set:\n")
	fmt.Fprintf(out, "  ID:        %s\n", budget.ID)
	fmt.Fprintf(out, "  User:      %s\n", budget.UserID)
	fmt.Fprintf(out, "  Category:  %s\n", budget.Category)
	fmt.Fprintf(out, "  Total:     %s\n", budget.Total.StringFixed(2))
	fmt.Fprintf(out, "  Spent:     %s\n", budget.Spent.StringFixed(2))
	fmt.Fprintf(out, "  Period:    %s\n", budget.Period)
	return nil
}

func runBudgetList(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	budgets, err := a.Store.ListBudgets(cmd.Context(), model.BudgetFilter{UserID: user})
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No budgets configured. Use 'bg budget set' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tUSER\tCATEGORY\tPERIOD\tTOTAL\tSPENT\n")
	for _, b := range budgets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.UserID, b.Category, b.Period,
			b.Total.StringFixed(2), b.Spent.StringFixed(2),
		)
	}
	return w.Flush()
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	budgets, err := a.Store.ListBudgets(cmd.Context(), model.BudgetFilter{UserID: user})
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No budgets configured. Use 'bg budget set' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\tCATEGORY\tTOTAL\tSPENT\tREMAINING\tUSAGE\n")
	for _, b := range budgets {
		remaining := b.Total.Sub(b.Spent)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		eval := alerting.EvaluateBudget(b)

		status := ""
		switch eval.Bucket {
		case model.BucketExceeded:
			status = " [EXCEEDED]"
		case model.BucketCritical:
			status = " [CRITICAL]"
		case model.BucketWarning:
			status = " [WARNING]"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f%%%s\n",
			b.UserID, b.Category, b.Total.StringFixed(2), b.Spent.StringFixed(2),
			remaining.StringFixed(2), eval.Percentage, status,
		)
	}
	return w.Flush()
}

func runBudgetDelete(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.DeleteBudget(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Budget %s deleted\n", args[0])
	return nil
}

// BudgetFile is the YAML layout accepted by 'bg budget import'.
type BudgetFile struct {
	Budgets  []BudgetEntry     `yaml:"budgets"`
	Contacts map[string]string `yaml:"contacts"`
}

// BudgetEntry is one budget in a BudgetFile.
type BudgetEntry struct {
	ID       string     `yaml:"id"`
	UserID   string     `yaml:"user_id"`
	Category string     `yaml:"category"`
	Total    yamlAmount `yaml:"total"`
	Spent    yamlAmount `yaml:"spent"`
	Period   string     `yaml:"period"`
}

// yamlAmount reads quoted or unquoted decimal scalars without float rounding.
type yamlAmount struct {
	decimal.Decimal
}

func (a *yamlAmount) UnmarshalYAML(node *yaml.Node) error {
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", node.Line, node.Value)
	}
	a.Decimal = d
	return nil
}

// ParseBudgetFile decodes and validates a budget import file.
func ParseBudgetFile(data []byte) ([]model.Budget, map[string]string, error) {
	var f BudgetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse budget file: %w", err)
	}

	budgets := make([]model.Budget, 0, len(f.Budgets))
	for i, e := range f.Budgets {
		b := model.Budget{
			ID:       e.ID,
			UserID:   e.UserID,
			Category: e.Category,
			Total:    e.Total.Decimal,
			Spent:    e.Spent.Decimal,
			Period:   model.BudgetPeriod(e.Period),
		}
		if err := dispatch.Validate(&b); err != nil {
			return nil, nil, fmt.Errorf("budget %d: %w", i+1, err)
		}
		budgets = append(budgets, b)
	}

	for user, email := range f.Contacts {
		if err := validateContact(user, email); err != nil {
			return nil, nil, err
		}
	}
	return budgets, f.Contacts, nil
}

func runBudgetImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read budget file: %w", err)
	}
	budgets, contacts, err := ParseBudgetFile(data)
	if err != nil {
		return err
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	for i := range budgets {
		if err := a.Store.SetBudget(cmd.Context(), &budgets[i]); err != nil {
			return fmt.Errorf("set budget %s/%s: %w", budgets[i].UserID, budgets[i].Category, err)
		}
	}
	for user, email := range contacts {
		if err := a.Store.SetContact(cmd.Context(), user, email); err != nil {
			return fmt.Errorf("set contact %s: %w", user, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d budgets and %d contacts\n", len(budgets), len(contacts))
	return nil
}

func parseAmountFlag(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid amount %q", name, value)
	}
	return d, nil
}
