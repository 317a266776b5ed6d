// Package block defines block types and the context-free phase of block
// validation (see internal/validate for the contextual phases).
package block

import "github.com/k-nuth/blockchain-sub001/pkg/tx"

// Block represents a block as it appears on the wire: a header plus its
// ordered transaction list.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, transactions []*tx.Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: transactions,
	}
}
