package metadata

// cell memoizes one lazily fetched property: the first get runs fetch
// and every later get replays the stored outcome, including the error.
// Cells are not safe for concurrent use, same as the wrappers that
// embed them.
type cell[T any] struct {
	value T
	err   error
	done  bool
}

func (c *cell[T]) get(fetch func() (T, error)) (T, error) {
	if !c.done {
		c.value, c.err = fetch()
		c.done = true
	}
	return c.value, c.err
}
