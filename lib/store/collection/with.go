package collection

import (
	"errors"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
)

// With creates a collection, passes it to fn and closes it on every exit
// path, including a panic in fn. The close error is joined with the error
// returned by fn.
func With[V any](registry *conn.Registry, cfg store.Config[V], fn func(c *Collection[V]) error) (err error) {
	c, err := New(registry, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	return fn(c)
}
