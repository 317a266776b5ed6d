package block

import (
	"encoding/binary"

	"github.com/k-nuth/blockchain-sub001/pkg/crypto"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Header contains block metadata. Height is deliberately not a header field:
// a header's position in the chain is a property of where it sits in a
// Branch or the persistent store, never of the header bytes themselves.
type Header struct {
	Version    uint32     `json:"version"`
	PrevHash   types.Hash `json:"prev_hash"`
	MerkleRoot types.Hash `json:"merkle_root"`
	Timestamp  uint32     `json:"timestamp"`
	Bits       uint32     `json:"bits"`
	Nonce      uint32     `json:"nonce"`
}

// Hash computes the block header hash, the value used as a block's identity
// everywhere in the chain (BlockRef, PrevHash linkage, branch lookups).
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical byte representation used for hashing.
// Format: version(4) | prev_hash(32) | merkle_root(32) | timestamp(4) | bits(4) | nonce(4)
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 80)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Timestamp)
	buf = binary.LittleEndian.AppendUint32(buf, h.Bits)
	buf = binary.LittleEndian.AppendUint32(buf, h.Nonce)
	return buf
}
