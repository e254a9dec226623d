package artifact

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c-colloid/previewcache/cmd/util"
	"github.com/c-colloid/previewcache/lib/cache"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the artifact cache",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix   = "__test"
	perfValueSizeKB = 100
	perfNumThreads  = 4
	perfKeySpread   = 100
	perfOps         = 1000
	perfSkip        = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. save,load)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("Size of the artifact payload (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSizeKB = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOps = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult holds the latency histogram of one benchmark
type perfResult struct {
	hist    gometrics.Histogram
	elapsed time.Duration
	skipped bool
}

func runPerf(cmd *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for the artifact cache")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Directory:  %s\n", viper.GetString("dir"))
	fmt.Printf("Threads:    %d\n", perfNumThreads)
	fmt.Printf("Ops:        %d\n", perfOps)
	fmt.Printf("Value size: %d KB\n", perfValueSizeKB)
	fmt.Printf("Keys:       %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	ctx := cmd.Context()
	payload := make([]byte, perfValueSizeKB*1024)
	results := make(map[string]perfResult)

	// save: cold writes across the key spread
	results["save"] = runBench("save", func(i int) {
		svc.Save(ctx, perfKey("save", i), cache.Artifact{Data: payload, Width: 1, Height: 1})
	})
	printResult("save", results["save"])

	// load: hits against the keys written by the save benchmark
	prepareKeys(ctx, "load", payload)
	results["load"] = runBench("load", func(i int) {
		svc.Load(ctx, perfKey("load", i))
	})
	printResult("load", results["load"])

	// load-miss: lookups that can never hit
	results["load-miss"] = runBench("load-miss", func(i int) {
		svc.Load(ctx, perfKey("load-miss-never-saved", i))
	})
	printResult("load-miss", results["load-miss"])

	// has: metadata-only existence checks
	prepareKeys(ctx, "has", payload)
	results["has"] = runBench("has", func(i int) {
		svc.HasEntry(perfKey("has", i))
	})
	printResult("has", results["has"])

	// mixed: the save/load/has/clear blend of a real workload
	prepareKeys(ctx, "mixed", payload)
	results["mixed"] = runBench("mixed", func(i int) {
		key := perfKey("mixed", i)
		switch i % 4 {
		case 0:
			svc.Save(ctx, key, cache.Artifact{Data: payload, Width: 1, Height: 1})
		case 1:
			svc.Load(ctx, key)
		case 2:
			svc.HasEntry(key)
		case 3:
			svc.Clear(key)
		}
	})
	printResult("mixed", results["mixed"])

	// cleanup
	svc.ClearAll()

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// perfKey returns the i-th benchmark key (with wraparound over the spread)
func perfKey(prefix string, i int) string {
	return fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i%perfKeySpread)
}

// prepareKeys saves an artifact for every key in the spread
func prepareKeys(ctx context.Context, prefix string, payload []byte) {
	for i := 0; i < perfKeySpread; i++ {
		svc.Save(ctx, perfKey(prefix, i), cache.Artifact{Data: payload, Width: 1, Height: 1})
	}
}

// runBench runs op perfOps times across perfNumThreads goroutines and
// records per-operation latencies in an exponentially decaying sample.
func runBench(name string, op func(i int)) perfResult {
	if shouldSkip(name) {
		return perfResult{skipped: true}
	}

	hist := gometrics.NewHistogram(gometrics.NewExpDecaySample(1028, 0.015))

	var (
		wg   sync.WaitGroup
		next = make(chan int)
	)

	start := time.Now()
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				opStart := time.Now()
				op(i)
				hist.Update(time.Since(opStart).Nanoseconds())
			}
		}()
	}
	for i := 0; i < perfOps; i++ {
		next <- i
	}
	close(next)
	wg.Wait()

	return perfResult{hist: hist, elapsed: time.Since(start)}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, r perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	ps := r.hist.Percentiles([]float64{0.5, 0.95, 0.99})
	opsPerSec := float64(r.hist.Count()) / r.elapsed.Seconds()

	fmt.Printf("%-12smean=%-12s p50=%-12s p95=%-12s p99=%-12s %.0f ops/sec\n",
		test,
		time.Duration(r.hist.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		opsPerSec,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "OpsPerSec", "Skipped",
		"Directory", "Threads", "ValueSizeKB", "Keys", "Ops",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, r := range results {
		row := []string{test, "0", "0", "0", "0", "0", "true",
			viper.GetString("dir"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfOps),
		}

		if !r.skipped {
			ps := r.hist.Percentiles([]float64{0.5, 0.95, 0.99})
			row[1] = fmt.Sprintf("%.0f", r.hist.Mean())
			row[2] = fmt.Sprintf("%.0f", ps[0])
			row[3] = fmt.Sprintf("%.0f", ps[1])
			row[4] = fmt.Sprintf("%.0f", ps[2])
			row[5] = fmt.Sprintf("%.0f", float64(r.hist.Count())/r.elapsed.Seconds())
			row[6] = "false"
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
