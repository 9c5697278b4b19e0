package state

// LoadStatus of a pulled collection
type LoadStatus int

const (
	// StatusPending means no pull has completed yet
	StatusPending LoadStatus = iota
	StatusLoaded
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Listing is a collection replaced wholesale by every pull. A failed pull
// carries no items; a successful pull with zero items is Empty, which is a
// different state from Failed.
type Listing[T any] struct {
	Status LoadStatus
	Items  []T
	Err    error
}

// Loaded builds a successful listing
func Loaded[T any](items []T) Listing[T] {
	return Listing[T]{Status: StatusLoaded, Items: items}
}

// Failed builds a failed listing
func Failed[T any](err error) Listing[T] {
	return Listing[T]{Status: StatusFailed, Err: err}
}

// Empty reports a successful pull that returned nothing
func (l Listing[T]) Empty() bool {
	return l.Status == StatusLoaded && len(l.Items) == 0
}
