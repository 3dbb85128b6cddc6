package count

import (
	"errors"
	"fmt"
	"os"

	"github.com/ValentinKolb/spillkv/cmd/util"
	"github.com/ValentinKolb/spillkv/lib/common"
	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/collection"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cmd")

	// CountCmd counts duplicate lines with a collection that spills to disk
	CountCmd = &cobra.Command{
		Use:   "count [file...]",
		Short: "Count how often each line occurs",
		Long: `Count how often each distinct line of the input (the given files or stdin) occurs.
The counts are kept in a collection, so inputs with more distinct lines than fit
into the cache are spilled to the database file. The most frequent lines are
printed as "<count>\t<line>"`,
		RunE: run,
	}
)

func init() {
	key := "top"
	CountCmd.Flags().Int(key, 10, util.WrapString("How many of the most frequent lines to print (0 prints all)"))
}

func run(cmd *cobra.Command, args []string) error {
	conf, cleanup, err := util.PrepareRun(cmd)
	defer cleanup()
	if err != nil {
		return err
	}

	cfg, err := common.ToStoreConfig[int64](conf)
	if err != nil {
		return err
	}
	cfg.ExtraColumns = map[string]store.ColumnFunc[int64]{
		"count": func(n int64) any { return n },
	}

	log.Debugf("configuration:%s", conf.String())

	registry := conn.NewRegistry()
	defer registry.CloseAll()

	return collection.With(registry, cfg, func(c *collection.Collection[int64]) error {
		lines := 0
		err := util.Lines(cmd.InOrStdin(), args, func(line string) error {
			lines++
			return Increment(c, line)
		})
		if err != nil {
			return err
		}

		distinct, err := c.Len()
		if err != nil {
			return err
		}
		log.Infof("read %d lines, %d distinct", lines, distinct)

		rows, err := Top(c, viper.GetInt("top"))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, row := range rows {
			fmt.Fprintf(out, "%d\t%s\n", row.Count, row.Line)
		}

		if conf.Metrics {
			c.Metrics().WritePrometheus(os.Stderr)
		}
		return nil
	})
}

// Increment adds one to the count of line
func Increment(c store.IDict[int64], line string) error {
	n, err := c.Get(line)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return c.Set(line, n+1)
}

// Counted is a line together with the number of times it occurred
type Counted struct {
	Line  string
	Count int64
}

// Top returns the n most frequent lines, ties are sorted by line.
// n <= 0 returns all lines.
func Top(c store.IDict[int64], n int) ([]Counted, error) {
	query := fmt.Sprintf("SELECT key, count FROM %s ORDER BY count DESC, key", c.TableName())
	var params []any
	if n > 0 {
		query += " LIMIT ?"
		params = append(params, n)
	}

	rows, err := c.Query(query, params)
	if err != nil {
		return nil, err
	}

	result := make([]Counted, 0, len(rows))
	for _, row := range rows {
		line, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key type %T", row[0])
		}
		count, ok := row[1].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected count type %T", row[1])
		}
		result = append(result, Counted{Line: line, Count: count})
	}
	return result, nil
}
