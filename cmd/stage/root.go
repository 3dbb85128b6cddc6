package stage

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/spillkv/cmd/util"
	"github.com/ValentinKolb/spillkv/lib/common"
	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
	"github.com/ValentinKolb/spillkv/lib/store/sequence"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cmd")

	// StageCmd appends the input lines to a sequence and filters them with SQL
	StageCmd = &cobra.Command{
		Use:   "stage [file...]",
		Short: "Stage lines in a sequence and select them with SQL",
		Long: `Append every line of the input (the given files or stdin) to a sequence that
spills to the database file. Afterwards the lines longer than --min-length that
contain --grep (case insensitive) are selected through the indexed columns
"length" and "lower" and printed in input order as "<index>\t<line>".
Without a filter only the number of staged lines is printed`,
		RunE: run,
	}
)

func init() {
	key := "grep"
	StageCmd.Flags().String(key, "", util.WrapString("Only select lines containing this text (case insensitive)"))

	key = "min-length"
	StageCmd.Flags().Int(key, -1, util.WrapString("Only select lines longer than this many bytes (-1 disables the filter)"))
}

// Columns returns the extra columns of a staging table
func Columns() map[string]store.ColumnFunc[string] {
	return map[string]store.ColumnFunc[string]{
		"length": func(line string) any { return len(line) },
		"lower":  func(line string) any { return strings.ToLower(line) },
	}
}

func run(cmd *cobra.Command, args []string) error {
	conf, cleanup, err := util.PrepareRun(cmd)
	defer cleanup()
	if err != nil {
		return err
	}

	cfg, err := common.ToStoreConfig[string](conf)
	if err != nil {
		return err
	}
	cfg.ExtraColumns = Columns()

	grep := viper.GetString("grep")
	minLength := viper.GetInt("min-length")

	registry := conn.NewRegistry()
	defer registry.CloseAll()

	return sequence.With(registry, cfg, func(s *sequence.Sequence[string]) error {
		if err := util.Lines(cmd.InOrStdin(), args, s.Append); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if grep == "" && minLength < 0 {
			fmt.Fprintf(out, "staged %d lines\n", s.Len())
		} else {
			indexes, err := Select(s, grep, minLength)
			if err != nil {
				return err
			}
			for _, i := range indexes {
				line, err := s.Get(i)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d\t%s\n", i, line)
			}
			log.Infof("selected %d of %d lines", len(indexes), s.Len())
		}

		if conf.Metrics {
			fmt.Fprintf(os.Stderr, "cache stats: %+v\n", s.Stats())
		}
		return nil
	})
}

// Select returns the indexes of all staged lines longer than minLength that
// contain grep, in index order. An empty grep matches every line.
func Select(s store.IList[string], grep string, minLength int) ([]int, error) {
	query := fmt.Sprintf("SELECT CAST(key AS INTEGER) FROM %s WHERE length > ?", s.TableName())
	params := []any{minLength}
	if grep != "" {
		query += " AND instr(lower, ?) > 0"
		params = append(params, strings.ToLower(grep))
	}
	query += " ORDER BY CAST(key AS INTEGER)"

	rows, err := s.Query(query, params)
	if err != nil {
		return nil, err
	}

	indexes := make([]int, 0, len(rows))
	for _, row := range rows {
		i, ok := row[0].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected index type %T", row[0])
		}
		indexes = append(indexes, int(i))
	}
	return indexes, nil
}
