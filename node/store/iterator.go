package store

// Iterator walks raw key value pairs in key order.
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Close() error
}

type TypedIterator[T any] interface {
	First() bool
	Next() bool
	Valid() bool
	Value() (T, error)
	Close() error
}
