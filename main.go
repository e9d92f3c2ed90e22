package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "listing-engine",
	Short:         "Listing aggregation and normalization engine",
	Long:          "listing-engine serves normalized MLS listings enriched with franchise media,\nroutes leads to team members and exports listing feeds.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(directoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
