package cli

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the alert scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("no-scheduler", false, "Disable the periodic sweep and weekly summary")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		a.Config.Server.Listen = listen
	}
	if off, _ := cmd.Flags().GetBool("no-scheduler"); off {
		a.Config.Schedule.Enabled = false
	}

	return a.Serve(cmd.Context())
}
