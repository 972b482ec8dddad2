package history

const DefaultMaxHistory = 50

// Buffer is a linear undo/redo history over a single value.
// past is oldest first, future is most recently undone first.
type Buffer[T any] struct {
	past        []T
	present     T
	future      []T
	maxHistory  int
	skipHistory bool
}

type Option func(*options)

type options struct {
	maxHistory int
}

func WithMaxHistory(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHistory = n
		}
	}
}

func New[T any](initial T, opts ...Option) *Buffer[T] {
	o := options{maxHistory: DefaultMaxHistory}
	for _, opt := range opts {
		opt(&o)
	}
	return &Buffer[T]{
		present:    initial,
		maxHistory: o.maxHistory,
	}
}

func (b *Buffer[T]) Present() T { return b.present }

func (b *Buffer[T]) CanUndo() bool { return len(b.past) > 0 }

func (b *Buffer[T]) CanRedo() bool { return len(b.future) > 0 }

// SetSkipHistory makes every following Set/Update behave like SetWithoutHistory
// until it is turned off again, e.g. while loading initial data.
func (b *Buffer[T]) SetSkipHistory(skip bool) { b.skipHistory = skip }

func (b *Buffer[T]) Set(value T) {
	b.commit(value, false)
}

func (b *Buffer[T]) Update(fn func(prev T) T) {
	b.commit(fn(b.present), false)
}

func (b *Buffer[T]) SetWithoutHistory(value T) {
	b.commit(value, true)
}

func (b *Buffer[T]) commit(value T, skip bool) {
	if skip || b.skipHistory {
		b.present = value
		return
	}
	b.past = b.trim(append(b.past, b.present))
	b.present = value
	b.future = nil
}

func (b *Buffer[T]) Undo() {
	if len(b.past) == 0 {
		return
	}
	last := len(b.past) - 1
	previous := b.past[last]
	b.past = b.past[:last]
	b.future = append([]T{b.present}, b.future...)
	b.present = previous
}

func (b *Buffer[T]) Redo() {
	if len(b.future) == 0 {
		return
	}
	next := b.future[0]
	b.future = b.future[1:]
	b.past = b.trim(append(b.past, b.present))
	b.present = next
}

func (b *Buffer[T]) ClearHistory() {
	b.past = nil
	b.future = nil
}

func (b *Buffer[T]) trim(past []T) []T {
	if len(past) > b.maxHistory {
		return past[len(past)-b.maxHistory:]
	}
	return past
}

// Len reports the sizes of the past and future stacks.
func (b *Buffer[T]) Len() (past, future int) {
	return len(b.past), len(b.future)
}
