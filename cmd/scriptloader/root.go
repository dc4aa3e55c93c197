package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scriptloader",
	Short: "Discover, compile and register script components",
	Long:  `scriptloader runs the bootstrap pass against a script directory and reports what a host would register.`,
	// Execute prints the error itself.
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML or HCL property file")
	rootCmd.PersistentFlags().String("prefix", "", "property prefix the script path is bound under")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log per-source details")
}
