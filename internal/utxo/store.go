package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/internal/storage"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// ErrNotFound is returned when an outpoint has no unspent entry. Wraps
// storage.ErrNotFound so callers can use errors.Is against either.
var ErrNotFound = storage.ErrNotFound

// prefixUTXO namespaces UTXO entries within the backing DB.
var prefixUTXO = []byte("u/") // u/<txid><index> -> Entry JSON

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize+4)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixUTXO)+types.HashSize:], op.Index)
	return key
}

// Get retrieves a UTXO entry by its outpoint.
func (s *Store) Get(outpoint types.Outpoint) (*Entry, error) {
	data, err := s.db.Get(utxoKey(outpoint))
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &e, nil
}

// GetAtOrBelow retrieves a UTXO entry, but only if it was created at a
// height at or below branchHeight. This is the fast-path half of
// FastChain.get_utxo: an entry created above branchHeight belongs to a
// fork the caller cannot see.
func (s *Store) GetAtOrBelow(outpoint types.Outpoint, branchHeight uint64) (*Entry, error) {
	e, err := s.Get(outpoint)
	if err != nil {
		return nil, err
	}
	if e.Height > branchHeight {
		return nil, fmt.Errorf("utxo get: outpoint created at height %d is above branch height %d", e.Height, branchHeight)
	}
	return e, nil
}

// Put stores a UTXO entry.
func (s *Store) Put(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := s.db.Put(utxoKey(e.Outpoint), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	return nil
}

// Delete removes a UTXO entry.
func (s *Store) Delete(outpoint types.Outpoint) error {
	if err := s.db.Delete(utxoKey(outpoint)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// Has checks if a UTXO exists for the given outpoint.
func (s *Store) Has(outpoint types.Outpoint) (bool, error) {
	return s.db.Has(utxoKey(outpoint))
}

// ForEach iterates over all UTXO entries in the store.
func (s *Store) ForEach(fn func(*Entry) error) error {
	return s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&e)
	})
}

// Batch returns a batch of writes scoped to the UTXO namespace, letting a
// block connect/disconnect apply every UTXO add/remove as a single atomic
// commit rather than leaving a crash window partway through a block.
func (s *Store) Batch() (EntryBatch, bool) {
	batcher, ok := s.db.(storage.Batcher)
	if !ok {
		return EntryBatch{}, false
	}
	return EntryBatch{b: batcher.NewBatch()}, true
}

// EntryBatch accumulates UTXO writes for atomic application.
type EntryBatch struct {
	b storage.Batch
}

func (eb EntryBatch) Put(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	return eb.b.Put(utxoKey(e.Outpoint), data)
}

func (eb EntryBatch) Delete(outpoint types.Outpoint) error {
	return eb.b.Delete(utxoKey(outpoint))
}

func (eb EntryBatch) Commit() error {
	return eb.b.Commit()
}

// ClearAll removes every UTXO entry. Used during UTXO-set recovery after
// a crash during reorg, where Chain.RebuildUTXOs rebuilds the set from
// scratch by replaying blocks from genesis rather than trusting it as-is.
func (s *Store) ClearAll() error {
	var keys [][]byte
	if err := s.db.ForEach(prefixUTXO, func(key, _ []byte) error {
		k := make([]byte, len(key))
		copy(k, key)
		keys = append(keys, k)
		return nil
	}); err != nil {
		return fmt.Errorf("scan utxo keys: %w", err)
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("delete utxo key: %w", err)
		}
	}
	return nil
}
