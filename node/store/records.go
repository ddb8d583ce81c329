package store

import (
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

// RecordStore persists sealed time-lock records by id, and the VDF outputs
// already solved for them so the delay is paid at most once.
type RecordStore interface {
	NewTransaction() (Transaction, error)
	PutRecord(id string, data []byte, txn Transaction) error
	GetRecord(id string) ([]byte, error)
	DeleteRecord(id string, txn Transaction) error
	RangeRecords() (*PebbleRecordIterator, error)
	PutSolution(key []byte, output *vdf.Output, txn Transaction) error
	GetSolution(key []byte) (*vdf.Output, error)
	DeleteSolution(key []byte, txn Transaction) error
}

type PebbleRecordStore struct {
	db     KVDB
	logger *zap.Logger
}

var _ RecordStore = (*PebbleRecordStore)(nil)

// StoredRecord is a record id with its encoded record.
type StoredRecord struct {
	Id   string
	Data []byte
}

type PebbleRecordIterator struct {
	i Iterator
}

var _ TypedIterator[*StoredRecord] = (*PebbleRecordIterator)(nil)

func (p *PebbleRecordIterator) First() bool {
	return p.i.First()
}

func (p *PebbleRecordIterator) Next() bool {
	return p.i.Next()
}

func (p *PebbleRecordIterator) Valid() bool {
	return p.i.Valid()
}

func (p *PebbleRecordIterator) Value() (*StoredRecord, error) {
	if !p.i.Valid() {
		return nil, ErrNotFound
	}

	key := p.i.Key()
	if len(key) < 2 || key[0] != RECORD {
		return nil, errors.Wrap(ErrInvalidData, "get record iterator value")
	}

	value := p.i.Value()
	copied := make([]byte, len(value))
	copy(copied, value)

	return &StoredRecord{Id: string(key[1:]), Data: copied}, nil
}

func (p *PebbleRecordIterator) Close() error {
	return errors.Wrap(p.i.Close(), "closing record iterator")
}

func NewPebbleRecordStore(db KVDB, logger *zap.Logger) *PebbleRecordStore {
	return &PebbleRecordStore{
		db,
		logger,
	}
}

const (
	RECORD          = 0x01
	RECORD_SOLUTION = 0x02
)

// Record keys:
// 0x01 || record id
// Solution keys:
// 0x02 || sha3(construction, params, seed, iterations)

func recordKey(id string) []byte {
	return append([]byte{RECORD}, []byte(id)...)
}

func solutionKey(key []byte) []byte {
	return append([]byte{RECORD_SOLUTION}, key...)
}

func (p *PebbleRecordStore) NewTransaction() (Transaction, error) {
	return p.db.NewBatch(), nil
}

func (p *PebbleRecordStore) set(key, value []byte, txn Transaction) error {
	if txn != nil {
		return txn.Set(key, value)
	}

	return p.db.Set(key, value)
}

func (p *PebbleRecordStore) delete(key []byte, txn Transaction) error {
	if txn != nil {
		return txn.Delete(key)
	}

	return p.db.Delete(key)
}

func (p *PebbleRecordStore) get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	defer closer.Close()
	copied := make([]byte, len(value))
	copy(copied, value)

	return copied, nil
}

func (p *PebbleRecordStore) PutRecord(
	id string,
	data []byte,
	txn Transaction,
) error {
	if id == "" {
		return errors.Wrap(ErrInvalidData, "put record")
	}

	p.logger.Debug("put record", zap.String("record_id", id))
	return errors.Wrap(p.set(recordKey(id), data, txn), "put record")
}

func (p *PebbleRecordStore) GetRecord(id string) ([]byte, error) {
	data, err := p.get(recordKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "get record")
	}

	return data, nil
}

func (p *PebbleRecordStore) DeleteRecord(id string, txn Transaction) error {
	return errors.Wrap(p.delete(recordKey(id), txn), "delete record")
}

func (p *PebbleRecordStore) RangeRecords() (*PebbleRecordIterator, error) {
	iter, err := p.db.NewIter([]byte{RECORD}, []byte{RECORD + 1})
	if err != nil {
		return nil, errors.Wrap(err, "range records")
	}

	return &PebbleRecordIterator{i: iter}, nil
}

func (p *PebbleRecordStore) PutSolution(
	key []byte,
	output *vdf.Output,
	txn Transaction,
) error {
	data, err := json.Marshal(output)
	if err != nil {
		return errors.Wrap(err, "put solution")
	}

	return errors.Wrap(p.set(solutionKey(key), data, txn), "put solution")
}

func (p *PebbleRecordStore) GetSolution(key []byte) (*vdf.Output, error) {
	data, err := p.get(solutionKey(key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "get solution")
	}

	output := &vdf.Output{}
	if err := json.Unmarshal(data, output); err != nil {
		return nil, errors.Wrap(ErrInvalidData, "get solution")
	}

	return output, nil
}

func (p *PebbleRecordStore) DeleteSolution(key []byte, txn Transaction) error {
	return errors.Wrap(p.delete(solutionKey(key), txn), "delete solution")
}
