package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogulcanaydogan/budget-guardian/internal/app"
	"github.com/ogulcanaydogan/budget-guardian/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bg",
	Short: "Budget Guardian - budget threshold alerts and spending tools",
	Long: `Budget Guardian watches category budgets and sends warning, critical and
exceeded alerts with a per-budget cooldown. It also records transactions,
sends weekly summaries, scans receipts and answers finance questions.`,
	SilenceUsage: true,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.budget-guardian/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// initApp loads configuration and wires every component.
func initApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, config.NewLogger(cfg.Logging))
}
