package cmd

import (
	"fmt"
	"os"

	"github.com/c-colloid/previewcache/cmd/artifact"
	"github.com/c-colloid/previewcache/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "previewcache",
		Short: "two-tier preview artifact cache",
		Long: fmt.Sprintf(`previewcache (v%s)

A two-tier cache for rendered preview bitmaps, combining a bounded
in-memory tier with crash-safe durable storage and integrity-verified
reads.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of previewcache",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("previewcache v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(artifact.ArtifactCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("log level (trace, debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
