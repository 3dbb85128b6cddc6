// Package testing provides standardised tests and benchmarks for
// implementations of the store.IDict interface.
//
// The package contains:
//   - RunDictTests: a conformance suite for the IDict contract, including the
//     split of entries between cache and database
//   - RunDictBenchmarks: single goroutine benchmarks of the common operations
//
// The suite only uses the IDict interface, so it should be run once per cache
// configuration; a cache of size 0 and a cache larger than the data set
// exercise very different code paths.
//
// Example usage:
//
//	factory := func(tb testing.TB) store.IDict[string] {
//		cfg := store.DefaultConfig[string](filepath.Join(tb.TempDir(), "test.db"))
//		c, err := collection.New(conn.NewRegistry(), cfg)
//		if err != nil {
//			tb.Fatal(err)
//		}
//		return c
//	}
//
//	storetesting.RunDictTests(t, "Collection", factory)
//	storetesting.RunDictBenchmarks(b, "Collection", factory)
package testing
