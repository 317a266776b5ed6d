// Package validate implements the check/accept/connect phases spec.md §4.5
// and §4.6 assign to ValidateTransaction and ValidateBlock: context-free
// structural checks already live on pkg/tx and pkg/block; this package adds
// the contextual phases that need a ChainState, a populated prevout view,
// and the opaque script-verification collaborator.
package validate

import (
	"errors"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// CodedError pairs a failure with the types.Code a submitter's handler
// switches on, per spec.md §6.4 and §7's error taxonomy.
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
	ErrMissingPrevout    = errors.New("missing previous output")
	ErrPrematureSpend    = errors.New("prevout not yet mature")
	ErrNonFinal          = errors.New("transaction not final at this height/time")
	ErrFeeNegative       = errors.New("transaction fee is negative")
	ErrBelowDustLimit    = errors.New("output below minimum output policy")
	ErrSigchecksExceeded = errors.New("sigcheck limit exceeded")
	ErrBadTarget         = errors.New("block target does not match chain state")
	ErrTimestampTooOld   = errors.New("block timestamp not after median time past")
	ErrTimestampTooNew   = errors.New("block timestamp too far in the future")
	ErrBadCoinbaseHeight = errors.New("coinbase does not commit to block height")
	ErrBIP30Collision    = errors.New("unspent transaction duplicate")
	ErrBlockTooLarge     = errors.New("block exceeds consensus size limit")
)
