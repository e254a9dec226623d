package util

import (
	"strings"
	"time"

	"github.com/c-colloid/previewcache/lib/cache"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupCacheFlags adds the common cache configuration flags to a command
func SetupCacheFlags(cmd *cobra.Command) {
	key := "dir"
	cmd.PersistentFlags().String(key, ".previewcache", WrapString("Directory holding the cached artifacts and the index"))

	key = "max-memory-entries"
	cmd.PersistentFlags().Int(key, 50, WrapString("Capacity of the in-memory metadata tier"))

	key = "max-artifact-size"
	cmd.PersistentFlags().Int64(key, 10*1024, WrapString("Per-artifact size limit in KB"))

	key = "max-total-size"
	cmd.PersistentFlags().Int64(key, 100*1024, WrapString("Total on-disk size cap in KB, enforced by maintenance"))

	key = "max-concurrent-ops"
	cmd.PersistentFlags().Int64(key, 4, WrapString("Maximum simultaneous storage operations"))

	key = "acquire-timeout"
	cmd.PersistentFlags().Duration(key, 5*time.Second, WrapString("How long an operation waits for a free concurrency slot"))

	key = "retry-attempts"
	cmd.PersistentFlags().Uint(key, 3, WrapString("Attempts per storage operation, first try included"))

	key = "retry-delay"
	cmd.PersistentFlags().Duration(key, 100*time.Millisecond, WrapString("Base retry delay, attempt n waits n times this"))

	key = "maintenance-interval"
	cmd.PersistentFlags().Duration(key, 24*time.Hour, WrapString("Minimum time between maintenance sweeps"))

	key = "expiry-age"
	cmd.PersistentFlags().Duration(key, 7*24*time.Hour, WrapString("Entries unused for longer than this are removed by maintenance"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("previewcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetCacheOptions reads the cache configuration from viper
func GetCacheOptions() *cache.Options {
	return &cache.Options{
		Directory:           viper.GetString("dir"),
		MaxMemoryEntries:    viper.GetInt("max-memory-entries"),
		MaxArtifactSize:     viper.GetInt64("max-artifact-size") * 1024,
		MaxTotalSize:        viper.GetInt64("max-total-size") * 1024,
		MaxConcurrentOps:    viper.GetInt64("max-concurrent-ops"),
		AcquireTimeout:      viper.GetDuration("acquire-timeout"),
		MaxRetryAttempts:    uint(viper.GetUint("retry-attempts")),
		RetryDelay:          viper.GetDuration("retry-delay"),
		MaintenanceInterval: viper.GetDuration("maintenance-interval"),
		ExpiryAge:           viper.GetDuration("expiry-age"),
	}
}

// ConfigureLogging applies the configured log level to logrus
func ConfigureLogging() {
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
