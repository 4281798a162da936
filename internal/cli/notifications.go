package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Read in-app notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications for a user",
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)

	notificationsListCmd.Flags().StringP("user", "u", "", "User ID")
	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
	_ = notificationsListCmd.MarkFlagRequired("user")
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")
	unread, _ := cmd.Flags().GetBool("unread")

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ns, err := a.Store.ListNotifications(cmd.Context(), user, unread)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	if len(ns) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notifications.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tWHEN\tREAD\tTITLE\tMESSAGE\n")
	for _, n := range ns {
		read := "no"
		if n.Read {
			read = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, humanize.Time(n.CreatedAt), read, n.Title, n.Message)
	}
	return w.Flush()
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Notification %s marked as read\n", args[0])
	return nil
}
