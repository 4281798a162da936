package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/budget-guardian/pkg/dispatch"
	"github.com/spf13/cobra"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage alert email addresses",
}

var contactSetCmd = &cobra.Command{
	Use:   "set <user_id> <email>",
	Short: "Set the email address alerts are sent to",
	Args:  cobra.ExactArgs(2),
	RunE:  runContactSet,
}

func init() {
	rootCmd.AddCommand(contactCmd)
	contactCmd.AddCommand(contactSetCmd)
}

type contact struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

func validateContact(userID, email string) error {
	return dispatch.Validate(contact{UserID: userID, Email: email})
}

func runContactSet(cmd *cobra.Command, args []string) error {
	if err := validateContact(args[0], args[1]); err != nil {
		return err
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.SetContact(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("set contact: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Alerts for %s go to %s\n", args[0], args[1])
	return nil
}
