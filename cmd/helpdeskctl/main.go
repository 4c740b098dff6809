package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "helpdeskctl",
	Short: "Maintenance commands for the helpdesk service",
	Long: `helpdeskctl runs database migrations, seeds staff accounts and
answers SLA questions using the same configuration as the API server.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newCreateStaffCommand())
	rootCmd.AddCommand(newHashPasswordCommand())
	rootCmd.AddCommand(newSLADueCommand())
}
