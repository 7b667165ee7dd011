package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fulfillment",
	Short: "Order fulfillment service",
	Long:  `Manages orders, truck dispatches and recurring delivery schedules`,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}
