package stage

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
	"github.com/ValentinKolb/spillkv/lib/store/sequence"
)

func TestSelect(t *testing.T) {
	cfg := store.DefaultConfig[string](filepath.Join(t.TempDir(), "stage.db"))
	cfg.CacheMaxSize = 3
	cfg.CacheEvictionBatchSize = 2
	cfg.ExtraColumns = Columns()

	lines := []string{
		"INFO starting",
		"ERROR disk full",
		"info done",
		"",
		"error: short",
		"WARN almost out of Error budget",
	}
	// more than 10 lines so index order differs from text order
	for i := 0; i < 6; i++ {
		lines = append(lines, "filler")
	}
	lines = append(lines, "late error")

	err := sequence.With(conn.NewRegistry(), cfg, func(s *sequence.Sequence[string]) error {
		for _, line := range lines {
			if err := s.Append(line); err != nil {
				return err
			}
		}

		cases := []struct {
			name      string
			grep      string
			minLength int
			expected  []int
		}{
			{"grep", "error", -1, []int{1, 4, 5, 12}},
			{"grep+length", "error", 12, []int{1, 5}},
			{"length", "", 14, []int{1, 5}},
			{"all", "", -1, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
			{"none", "fatal", -1, []int{}},
		}

		for _, tc := range cases {
			got, err := Select(s, tc.grep, tc.minLength)
			if err != nil {
				return err
			}
			if len(got) != len(tc.expected) {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, got)
				continue
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, got)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}
