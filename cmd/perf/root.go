package perf

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/spillkv/cmd/util"
	"github.com/ValentinKolb/spillkv/lib/common"
	"github.com/ValentinKolb/spillkv/lib/store/collection"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
	storetesting "github.com/ValentinKolb/spillkv/lib/store/testing"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// PerfCmd benchmarks collections with the configured cache settings
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for collections",
		Long: `Run the collection benchmarks with the configured cache and serializer settings.
Every benchmark runs on a new table of the database file and reports the
throughput together with the latency percentiles of each operation`,
		RunE: run,
	}

	percentiles = []float64{0.5, 0.9, 0.99}
)

func init() {
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated, e.g. GetCold,Keys)"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

// result is the outcome of one benchmark
type result struct {
	name    string
	bench   testing.BenchmarkResult
	skipped bool
}

func run(cmd *cobra.Command, _ []string) error {
	conf, cleanup, err := util.PrepareRun(cmd)
	defer cleanup()
	if err != nil {
		return err
	}

	// fail early on an invalid configuration instead of inside the benchmarks
	base, err := common.ToStoreConfig[string](conf)
	if err != nil {
		return err
	}
	skip := strings.Split(viper.GetString("skip"), ",")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Performance testing tool for collections")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, conf.String())
	fmt.Fprintln(out, "starting tests...")

	registry := conn.NewRegistry()
	defer registry.CloseAll()

	timers := metrics.NewRegistry()
	var results []result
	tables := 0

	for _, bm := range storetesting.Benchmarks {
		if slices.Contains(skip, bm.Name) {
			results = append(results, result{name: bm.Name, skipped: true})
			printResult(out, bm.Name, testing.BenchmarkResult{})
			continue
		}

		var benchErr error
		bench := testing.Benchmark(func(b *testing.B) {
			// testing.Benchmark calls this function once per round
			cfg := base
			tables++
			cfg.TableName = fmt.Sprintf("%s_%s_%d", base.TableName, strings.ToLower(bm.Name), tables)

			c, err := collection.New(registry, cfg)
			if err != nil {
				benchErr = err
				b.SkipNow()
			}
			bm.Run(b, newTimedDict[string](c, timers, bm.Name))
		})
		if benchErr != nil {
			return fmt.Errorf("benchmark %s: %w", bm.Name, benchErr)
		}

		results = append(results, result{name: bm.Name, bench: bench})
		printResult(out, bm.Name, bench)
		printTimers(out, timers, bm.Name)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, timers, conf); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// opsPerSec converts a benchmark result to operations per second
func opsPerSec(result testing.BenchmarkResult) (float64, float64) {
	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	return nsPerOp, 1.0 / (nsPerOp / 1e9)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(out io.Writer, test string, result testing.BenchmarkResult) {
	if result.N == 0 {
		fmt.Fprintf(out, "%-20sskipped\n", test)
		return
	}

	nsPerOp, perSec := opsPerSec(result)
	fmt.Fprintf(out, "%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), perSec)
}

// printTimers prints the latency percentiles of every operation the benchmark used
func printTimers(out io.Writer, r metrics.Registry, test string) {
	for _, op := range timedOps {
		t, ok := r.Get(test + "." + op).(metrics.Timer)
		if !ok || t.Count() == 0 {
			continue
		}
		ps := t.Percentiles(percentiles)
		fmt.Fprintf(out, "  %-18s%8d calls\tp50 %-10s p90 %-10s p99 %s\n", op, t.Count(),
			time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
	}
}

// writeResultsToCSV writes one row per benchmark and operation to a CSV file
func writeResultsToCSV(csvPath string, results []result, r metrics.Registry, conf common.SpillConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Op", "Calls", "P50Ns", "P90Ns", "P99Ns",
		"CacheMaxSize", "CacheEvictionBatchSize", "Serializer",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	settings := []string{
		strconv.Itoa(conf.CacheMaxSize),
		strconv.Itoa(conf.CacheEvictionBatchSize),
		conf.Serializer,
	}

	for _, res := range results {
		summary := []string{res.name, "0", "0s", "0", "true"}
		if !res.skipped {
			nsPerOp, perSec := opsPerSec(res.bench)
			summary = []string{
				res.name,
				fmt.Sprintf("%.0f", nsPerOp),
				time.Duration(nsPerOp).String(),
				fmt.Sprintf("%.0f", perSec),
				"false",
			}
		}

		written := false
		for _, op := range timedOps {
			t, ok := r.Get(res.name + "." + op).(metrics.Timer)
			if !ok || t.Count() == 0 {
				continue
			}
			ps := t.Percentiles(percentiles)
			row := append(slices.Clone(summary),
				op,
				strconv.FormatInt(t.Count(), 10),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				fmt.Sprintf("%.0f", ps[2]),
			)
			if err := writer.Write(append(row, settings...)); err != nil {
				return fmt.Errorf("failed to write row for test %s: %v", res.name, err)
			}
			written = true
		}

		if !written {
			row := append(slices.Clone(summary), "", "0", "0", "0", "0")
			if err := writer.Write(append(row, settings...)); err != nil {
				return fmt.Errorf("failed to write row for test %s: %v", res.name, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
