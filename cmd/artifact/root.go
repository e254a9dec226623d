package artifact

import (
	"github.com/c-colloid/previewcache/cmd/util"
	"github.com/c-colloid/previewcache/lib/cache"
	"github.com/spf13/cobra"
)

var (
	svc cache.ICache

	// ArtifactCommands represents the artifact command group
	ArtifactCommands = &cobra.Command{
		Use:               "artifact",
		Short:             "Perform cache operations on preview artifacts",
		PersistentPreRunE: setupCache,
		PersistentPostRun: teardownCache,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common cache flags to the artifact command
	util.SetupCacheFlags(ArtifactCommands)

	// Add subcommands
	ArtifactCommands.AddCommand(putCmd)
	ArtifactCommands.AddCommand(getCmd)
	ArtifactCommands.AddCommand(hasCmd)
	ArtifactCommands.AddCommand(clearCmd)
	ArtifactCommands.AddCommand(clearAllCmd)
	ArtifactCommands.AddCommand(statsCmd)
	ArtifactCommands.AddCommand(maintainCmd)
	ArtifactCommands.AddCommand(perfTestCmd)
}

// setupCache opens the cache in the configured directory
func setupCache(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	util.ConfigureLogging()

	var err error
	svc, err = cache.New(util.GetCacheOptions())
	return err
}

// teardownCache closes the cache after the command ran
func teardownCache(_ *cobra.Command, _ []string) {
	if svc != nil {
		_ = svc.Close()
	}
}
