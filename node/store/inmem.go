package store

import (
	"io"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

var errInMemClosed = errors.New("inmem db closed")

// InMemKVDB is a sorted map implementation of KVDB, used in tests and when
// persistence is disabled.
type InMemKVDB struct {
	open       bool
	sortedKeys []string
	store      map[string][]byte
	storeMx    sync.Mutex
}

type Operation int

const (
	SetOperation Operation = iota
	DeleteOperation
)

type InMemKVDBOperation struct {
	op    Operation
	key   []byte
	value []byte
}

type InMemKVDBTransaction struct {
	changes []InMemKVDBOperation
	db      *InMemKVDB
}

// InMemKVDBIterator iterates over a snapshot of the keys in range taken when
// it was opened.
type InMemKVDBIterator struct {
	db   *InMemKVDB
	keys []string
	pos  int
	open bool
}

func (i *InMemKVDBIterator) First() bool {
	if !i.open {
		return false
	}

	i.pos = 0
	return i.Valid()
}

func (i *InMemKVDBIterator) Next() bool {
	if !i.open {
		return false
	}

	i.pos++
	return i.Valid()
}

func (i *InMemKVDBIterator) Valid() bool {
	return i.open && i.pos >= 0 && i.pos < len(i.keys)
}

func (i *InMemKVDBIterator) Key() []byte {
	if !i.Valid() {
		return nil
	}

	return []byte(i.keys[i.pos])
}

func (i *InMemKVDBIterator) Value() []byte {
	if !i.Valid() {
		return nil
	}

	i.db.storeMx.Lock()
	value := i.db.store[i.keys[i.pos]]
	i.db.storeMx.Unlock()

	return value
}

func (i *InMemKVDBIterator) Close() error {
	if !i.open {
		return errors.New("already closed iterator")
	}

	i.open = false
	return nil
}

func (t *InMemKVDBTransaction) Get(key []byte) ([]byte, io.Closer, error) {
	for j := len(t.changes) - 1; j >= 0; j-- {
		op := t.changes[j]
		if string(op.key) != string(key) {
			continue
		}

		if op.op == DeleteOperation {
			return nil, nil, pebble.ErrNotFound
		}

		return op.value, io.NopCloser(nil), nil
	}

	return t.db.Get(key)
}

func (t *InMemKVDBTransaction) Set(key []byte, value []byte) error {
	if !t.db.isOpen() {
		return errInMemClosed
	}

	t.changes = append(t.changes, InMemKVDBOperation{
		op:    SetOperation,
		key:   append([]byte{}, key...),
		value: append([]byte{}, value...),
	})

	return nil
}

func (t *InMemKVDBTransaction) Commit() error {
	if !t.db.isOpen() {
		return errInMemClosed
	}

	var err error
loop:
	for _, op := range t.changes {
		switch op.op {
		case SetOperation:
			err = t.db.Set(op.key, op.value)
			if err != nil {
				break loop
			}
		case DeleteOperation:
			err = t.db.Delete(op.key)
			if err != nil {
				break loop
			}
		}
	}

	t.changes = nil
	return err
}

func (t *InMemKVDBTransaction) Delete(key []byte) error {
	if !t.db.isOpen() {
		return errInMemClosed
	}

	t.changes = append(t.changes, InMemKVDBOperation{
		op:  DeleteOperation,
		key: append([]byte{}, key...),
	})

	return nil
}

func (t *InMemKVDBTransaction) Abort() error {
	t.changes = nil
	return nil
}

func NewInMemKVDB() *InMemKVDB {
	return &InMemKVDB{
		open:       true,
		store:      map[string][]byte{},
		sortedKeys: []string{},
	}
}

func (d *InMemKVDB) isOpen() bool {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()
	return d.open
}

func (d *InMemKVDB) Get(key []byte) ([]byte, io.Closer, error) {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()

	if !d.open {
		return nil, nil, errInMemClosed
	}

	b, ok := d.store[string(key)]
	if !ok {
		return nil, nil, pebble.ErrNotFound
	}

	return b, io.NopCloser(nil), nil
}

func (d *InMemKVDB) Set(key, value []byte) error {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()

	if !d.open {
		return errInMemClosed
	}

	k := string(key)
	if _, ok := d.store[k]; !ok {
		i := sort.SearchStrings(d.sortedKeys, k)
		d.sortedKeys = append(d.sortedKeys, "")
		copy(d.sortedKeys[i+1:], d.sortedKeys[i:])
		d.sortedKeys[i] = k
	}

	d.store[k] = append([]byte{}, value...)
	return nil
}

func (d *InMemKVDB) Delete(key []byte) error {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()

	if !d.open {
		return errInMemClosed
	}

	d.deleteLocked(string(key))
	return nil
}

func (d *InMemKVDB) deleteLocked(k string) {
	if _, ok := d.store[k]; !ok {
		return
	}

	i := sort.SearchStrings(d.sortedKeys, k)
	d.sortedKeys = append(d.sortedKeys[:i], d.sortedKeys[i+1:]...)
	delete(d.store, k)
}

// keyRange returns the keys in [start, end), with a nil end unbounded.
func (d *InMemKVDB) keyRange(start, end []byte) []string {
	from := sort.SearchStrings(d.sortedKeys, string(start))
	to := len(d.sortedKeys)
	if end != nil {
		to = sort.SearchStrings(d.sortedKeys, string(end))
	}

	if from >= to {
		return nil
	}

	return append([]string{}, d.sortedKeys[from:to]...)
}

func (d *InMemKVDB) NewBatch() Transaction {
	return &InMemKVDBTransaction{
		db:      d,
		changes: []InMemKVDBOperation{},
	}
}

func (d *InMemKVDB) NewIter(lowerBound []byte, upperBound []byte) (Iterator, error) {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()

	if !d.open {
		return nil, errInMemClosed
	}

	return &InMemKVDBIterator{
		open: true,
		db:   d,
		keys: d.keyRange(lowerBound, upperBound),
		pos:  -1,
	}, nil
}

func (d *InMemKVDB) Compact(start, end []byte, parallelize bool) error {
	if !d.isOpen() {
		return errInMemClosed
	}

	return nil
}

func (d *InMemKVDB) Close() error {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()

	if !d.open {
		return errInMemClosed
	}

	d.open = false
	return nil
}

func (d *InMemKVDB) DeleteRange(start, end []byte) error {
	d.storeMx.Lock()
	defer d.storeMx.Unlock()

	if !d.open {
		return errInMemClosed
	}

	for _, k := range d.keyRange(start, end) {
		d.deleteLocked(k)
	}

	return nil
}

func (d *InMemKVDB) CompactAll() error {
	return nil
}

var _ KVDB = (*InMemKVDB)(nil)
var _ Transaction = (*InMemKVDBTransaction)(nil)
