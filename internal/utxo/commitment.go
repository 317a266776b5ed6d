package utxo

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/crypto"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Commitment computes a merkle root over all entries in the store. Each
// entry is hashed deterministically, the hashes are sorted, and a merkle
// tree is built from them. Returns a zero hash for an empty set.
func Commitment(store *Store) (types.Hash, error) {
	var hashes []types.Hash

	err := store.ForEach(func(e *Entry) error {
		hashes = append(hashes, hashEntry(e))
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("utxo commitment: %w", err)
	}

	if len(hashes) == 0 {
		return types.Hash{}, nil
	}

	sort.Slice(hashes, func(i, j int) bool {
		return hashLess(hashes[i], hashes[j])
	})

	return block.ComputeMerkleRoot(hashes), nil
}

// hashEntry produces a deterministic BLAKE3 hash of a UTXO entry.
// Format: txid(32) | index(4) | value(8) | script_len(4) | script |
// height(8) | median_time_past(4) | coinbase(1)
func hashEntry(e *Entry) types.Hash {
	var buf []byte
	buf = append(buf, e.Outpoint.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, e.Outpoint.Index)
	buf = binary.LittleEndian.AppendUint64(buf, e.Output.Value)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Output.Script)))
	buf = append(buf, e.Output.Script...)
	buf = binary.LittleEndian.AppendUint64(buf, e.Height)
	buf = binary.LittleEndian.AppendUint32(buf, e.MedianTimePast)
	if e.Coinbase {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return crypto.Hash(buf)
}

func hashLess(a, b types.Hash) bool {
	for i := 0; i < types.HashSize; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
