package queue

type (
	// A Producer interface represents a producer that produces messages.
	// Produce returns false once the producer is exhausted.
	Producer[T any] interface {
		Produce() (T, bool)
	}

	// A ProducerFactory is a factory that creates a producer.
	ProducerFactory[T any] func() (Producer[T], error)

	// SliceProducer produces the items of a slice in order. It is safe for concurrent use.
	SliceProducer[T any] struct {
		items chan T
	}
)

// NewSliceProducer returns a producer that hands out every item once.
func NewSliceProducer[T any](items []T) *SliceProducer[T] {
	ch := make(chan T, len(items))
	for _, item := range items {
		ch <- item
	}
	close(ch)
	return &SliceProducer[T]{items: ch}
}

func (p *SliceProducer[T]) Produce() (T, bool) {
	item, ok := <-p.items
	return item, ok
}
