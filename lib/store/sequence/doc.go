// Package sequence provides an append-only, list-like container on top of a
// collection.
//
// Element i is stored under the key strconv.Itoa(i), so the backing table can
// be queried like any collection table. Since the keys are text, ORDER BY key
// sorts "10" before "2"; use CAST(key AS INTEGER) to get index order.
//
// Example:
//
//	registry := conn.NewRegistry()
//	cfg := store.DefaultConfig[string]("staging.db")
//	cfg.TableName = "lines"
//
//	err := sequence.With(registry, cfg, func(s *sequence.Sequence[string]) error {
//		for _, line := range lines {
//			if err := s.Append(line); err != nil {
//				return err
//			}
//		}
//		for line, err := range s.All() {
//			...
//		}
//		return nil
//	})
package sequence
