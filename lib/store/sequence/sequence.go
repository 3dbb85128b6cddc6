package sequence

import (
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/collection"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("sequence")

// Sequence is an append-only list stored in a collection whose keys are the
// decimal indexes "0", "1", ... The length lives in memory only: a sequence
// always starts empty and its table is created on construction.
//
// A Sequence is not safe for concurrent use.
type Sequence[V any] struct {
	c      *collection.Collection[V]
	length int
}

// New creates a sequence stored in the table cfg.TableName of the file
// cfg.Filename. It accepts the same configuration as collection.New.
func New[V any](registry *conn.Registry, cfg store.Config[V]) (*Sequence[V], error) {
	c, err := collection.New(registry, cfg)
	if err != nil {
		return nil, err
	}
	log.Debugf("created sequence %s", c.TableName())
	return &Sequence[V]{c: c}, nil
}

// With creates a sequence, passes it to fn and closes it on every exit path,
// including a panic in fn. The close error is joined with the error returned by fn.
func With[V any](registry *conn.Registry, cfg store.Config[V], fn func(s *Sequence[V]) error) (err error) {
	s, err := New(registry, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

// checkIndex returns ErrOutOfRange unless 0 <= i < Len()
func (s *Sequence[V]) checkIndex(i int) error {
	if i < 0 || i >= s.length {
		return store.NewError(store.ErrCOutOfRange, fmt.Sprintf("list index %d out of range", i))
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Sequence[V]) Get(i int) (V, error) {
	if err := s.checkIndex(i); err != nil {
		var zero V
		return zero, err
	}
	return s.c.Get(strconv.Itoa(i))
}

func (s *Sequence[V]) Set(i int, value V) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	return s.c.Set(strconv.Itoa(i), value)
}

func (s *Sequence[V]) Append(value V) error {
	if err := s.c.Set(strconv.Itoa(s.length), value); err != nil {
		return err
	}
	s.length++
	return nil
}

func (s *Sequence[V]) Len() int {
	return s.length
}

func (s *Sequence[V]) All() iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for i := 0; i < s.length; i++ {
			value, err := s.c.Get(strconv.Itoa(i))
			if !yield(value, err) || err != nil {
				return
			}
		}
	}
}

func (s *Sequence[V]) Flush() error {
	return s.c.Flush()
}

func (s *Sequence[V]) Query(query string, params []any, refs ...store.Flusher) ([][]any, error) {
	return s.c.Query(query, params, refs...)
}

func (s *Sequence[V]) TableName() string {
	return s.c.TableName()
}

func (s *Sequence[V]) Close() error {
	return s.c.Close()
}

// Stats returns the cache counters of the underlying collection.
func (s *Sequence[V]) Stats() collection.Stats {
	return s.c.Stats()
}
