package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/spillkv/cmd/count"
	"github.com/ValentinKolb/spillkv/cmd/perf"
	"github.com/ValentinKolb/spillkv/cmd/stage"
	"github.com/ValentinKolb/spillkv/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "spillkv",
		Short: "memory/disk hybrid key-value collections",
		Long: fmt.Sprintf(`spillkv (v%s)

Dict- and list-like collections for Go that keep their hot entries in an LRU
cache and spill the rest in batches to an embedded SQLite file, so data sets
larger than memory can be processed and queried with SQL.

All flags can also be set as environment variables with the prefix SPILLKV_
(e.g. SPILLKV_CACHE_SIZE=10000), read from .env and .env.local as well.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of spillkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("spillkv v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(count.CountCmd)
	RootCmd.AddCommand(stage.StageCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
