package perf

import (
	"iter"
	"time"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/rcrowley/go-metrics"
)

// timedOps lists the operations a timedDict records, in print order
var timedOps = []string{"get", "set", "delete", "len", "keys", "flush"}

var _ store.IDict[string] = (*timedDict[string])(nil)

// timedDict records the latency of every call in one timer per operation.
// Query, TableName and Close are passed through untimed.
type timedDict[V any] struct {
	store.IDict[V]
	timers map[string]metrics.Timer
}

// newTimedDict wraps d, the timers are registered as "<prefix>.<op>" in r
func newTimedDict[V any](d store.IDict[V], r metrics.Registry, prefix string) *timedDict[V] {
	t := &timedDict[V]{IDict: d, timers: make(map[string]metrics.Timer, len(timedOps))}
	for _, op := range timedOps {
		t.timers[op] = metrics.GetOrRegisterTimer(prefix+"."+op, r)
	}
	return t
}

func (t *timedDict[V]) Get(key string) (V, error) {
	defer t.timers["get"].UpdateSince(time.Now())
	return t.IDict.Get(key)
}

func (t *timedDict[V]) Set(key string, value V) error {
	defer t.timers["set"].UpdateSince(time.Now())
	return t.IDict.Set(key, value)
}

func (t *timedDict[V]) Delete(key string) error {
	defer t.timers["delete"].UpdateSince(time.Now())
	return t.IDict.Delete(key)
}

func (t *timedDict[V]) Len() (int, error) {
	defer t.timers["len"].UpdateSince(time.Now())
	return t.IDict.Len()
}

func (t *timedDict[V]) Flush() error {
	defer t.timers["flush"].UpdateSince(time.Now())
	return t.IDict.Flush()
}

// Keys times the whole iteration, including the loop body of the caller
func (t *timedDict[V]) Keys() iter.Seq2[string, error] {
	keys := t.IDict.Keys()
	return func(yield func(string, error) bool) {
		defer t.timers["keys"].UpdateSince(time.Now())
		keys(yield)
	}
}
