package artifact

import (
	"fmt"
	"os"
	"time"

	"github.com/c-colloid/previewcache/lib/cache"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [file]",
		Short: "Stores the bitmap from a file under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}

			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")

			if !svc.Save(cmd.Context(), key, cache.Artifact{Data: data, Width: width, Height: height}) {
				return fmt.Errorf("save failed for key %s", key)
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key] [file]",
		Short: "Reads the artifact for a key and writes it to a file (- for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			artifact, ok := svc.Load(cmd.Context(), key)
			if !ok {
				return fmt.Errorf("no artifact for key %s", key)
			}

			if args[1] == "-" {
				if _, err := os.Stdout.Write(artifact.Data); err != nil {
					return err
				}
			} else {
				if err := os.WriteFile(args[1], artifact.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", args[1], err)
				}
			}

			fmt.Fprintf(os.Stderr, "key=%s, size=%d, dimensions=%dx%d\n",
				key, len(artifact.Data), artifact.Width, artifact.Height)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if an artifact exists for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			fmt.Printf("key=%s, found=%t\n", key, svc.HasEntry(key))
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [key]",
		Short: "Removes the artifact for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !svc.Clear(key) {
				return fmt.Errorf("clear failed for key %s", key)
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	clearAllCmd = &cobra.Command{
		Use:   "clear-all",
		Short: "Removes all artifacts and resets the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !svc.ClearAll() {
				return fmt.Errorf("clear-all failed")
			}
			fmt.Println("cleared all successfully")
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prom, _ := cmd.Flags().GetBool("prometheus"); prom {
				svc.WriteMetrics(os.Stdout)
				return nil
			}

			stats := svc.GetStatistics()
			fmt.Printf("entries:        %d\n", stats.EntryCount)
			fmt.Printf("total size:     %d bytes\n", stats.TotalSizeBytes)
			fmt.Printf("lookups:        %d\n", stats.Lookups)
			fmt.Printf("hits:           %d\n", stats.Hits)
			fmt.Printf("hit rate:       %.2f\n", stats.HitRate)
			fmt.Printf("avg access:     %s\n", stats.AvgAccessTime.Round(time.Microsecond))
			return nil
		},
	}
	maintainCmd = &cobra.Command{
		Use:   "maintain",
		Short: "Runs the maintenance sweep if it is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if svc.RunMaintenanceIfDue() {
				fmt.Println("maintenance sweep ran")
			} else {
				fmt.Println("maintenance not due")
			}
			return nil
		},
	}
)

func init() {
	putCmd.Flags().Int("width", 1, "pixel width of the bitmap")
	putCmd.Flags().Int("height", 1, "pixel height of the bitmap")
	statsCmd.Flags().Bool("prometheus", false, "print metrics in Prometheus text format instead")
}
