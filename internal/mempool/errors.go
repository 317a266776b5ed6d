package mempool

import (
	"errors"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// CodedError pairs a failure with the types.Code a submitter's handler
// switches on, mirroring internal/validate's CodedError so callers threading
// a tx through accept/connect/mempool-admit see one consistent error shape.
type CodedError struct {
	Code types.Code
	Err  error
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

func coded(code types.Code, err error) error {
	return &CodedError{Code: code, Err: err}
}

func codedf(code types.Code, format string, args ...any) error {
	return &CodedError{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the Code carried by err, defaulting to ValidationFailed
// for an error this package did not itself produce.
func CodeOf(err error) types.Code {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return types.ValidationFailed
}

var (
	ErrAlreadyPresent  = errors.New("transaction already in mempool")
	ErrMissingPrevout  = errors.New("prevout not found in chain or mempool")
	ErrDoubleSpend     = errors.New("prevout already spent by another mempool transaction")
	ErrLowBenefit      = errors.New("package feerate does not improve on the pool's worst entry")
	ErrUnknownEviction = errors.New("eviction target is not present in the pool")
)
