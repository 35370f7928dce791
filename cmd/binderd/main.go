// Command binderd runs a naming engine with its introspection endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by ldflags during build).
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configPath   string
	manifestPath string
	colored      bool
)

var rootCmd = &cobra.Command{
	Use:           "binderd",
	Short:         "Scoped naming and reference resolution daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deploy the manifest and serve the inspect and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Deploy the manifest into a fresh engine and print its scope tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dump(cmd.Context(), cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "binderd "+version)
		fmt.Fprintln(out, "Commit: "+commit)
		fmt.Fprintln(out, "Built: "+buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "YAML deployment manifest")
	dumpCmd.Flags().BoolVar(&colored, "color", false, "color scope headers")

	rootCmd.AddCommand(serveCmd, dumpCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "binderd: %v\n", err)
		os.Exit(1)
	}
}
