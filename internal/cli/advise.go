package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var adviseCmd = &cobra.Command{
	Use:   "advise <question>",
	Short: "Ask the personal finance advisor a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdvise,
}

func init() {
	rootCmd.AddCommand(adviseCmd)
}

func runAdvise(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	advice, err := a.Advisor.Advise(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), advice.Response)
	return nil
}
