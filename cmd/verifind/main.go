package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "verifind",
	Short: "Community lost & found with verified handovers",
	Long: `VeriFind is a community lost & found service.

Members report lost and found items; a background matcher pairs them up
by lexical similarity with optional LLM corroboration, and ownership is
verified through a secret challenge before a handover code is issued.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the verifind version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("verifind version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
