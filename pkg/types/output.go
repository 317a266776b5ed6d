package types

// Output defines a new spendable value locked by an opaque script.
//
// Script interpretation is external to this package (see pkg/script): the
// bytes are never inspected here beyond their length.
type Output struct {
	Value  uint64 `json:"value"`
	Script []byte `json:"script"`
}
