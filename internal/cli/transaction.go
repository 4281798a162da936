package cli

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/spf13/cobra"
)

var transactionCmd = &cobra.Command{
	Use:   "transaction",
	Short: "Record expenses",
}

var transactionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense and alert on the budgets it affects",
	RunE:  runTransactionAdd,
}

func init() {
	rootCmd.AddCommand(transactionCmd)
	transactionCmd.AddCommand(transactionAddCmd)

	transactionAddCmd.Flags().StringP("user", "u", "", "User ID")
	transactionAddCmd.Flags().StringP("category", "c", "", "Spending category")
	transactionAddCmd.Flags().StringP("amount", "a", "", "Expense amount")
	transactionAddCmd.Flags().StringP("description", "d", "", "Free-form description")
	_ = transactionAddCmd.MarkFlagRequired("user")
	_ = transactionAddCmd.MarkFlagRequired("category")
	_ = transactionAddCmd.MarkFlagRequired("amount")
}

func runTransactionAdd(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")
	category, _ := cmd.Flags().GetString("category")
	amountStr, _ := cmd.Flags().GetString("amount")
	description, _ := cmd.Flags().GetString("description")

	amount, err := parseAmountFlag("amount", amountStr)
	if err != nil {
		return err
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, err := a.Dispatcher.RecordTransaction(cmd.Context(), model.Transaction{
		UserID:      user,
		Category:    category,
		Amount:      amount,
		Description: description,
		Date:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recorded %s against %s/%s\n", amount.StringFixed(2), user, category)
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "No matching budget.")
		return nil
	}
	return printOutcomes(out, outcomes)
}
