package core

import (
	"errors"

	"securewrap/core/ledger"
	"securewrap/native/securewrap"
)

var (
	ErrUnknownOperation = errors.New("core: unknown operation")
	ErrInvalidRequest   = errors.New("core: invalid request")
	ErrSupplyViolation  = errors.New("core: supply invariant violated")
)

// CodeInternal marks failures that are not a named condition of any layer.
const CodeInternal = "Internal"

var coreCodes = []struct {
	err  error
	code string
}{
	{ErrUnknownOperation, "UnknownOperation"},
	{ErrInvalidRequest, "InvalidRequest"},
	{ErrSupplyViolation, "SupplyInvariantViolated"},
	{ledger.ErrMintExists, "MintExists"},
	{ledger.ErrMintNotFound, "MintNotFound"},
	{ledger.ErrUnauthorized, "LedgerUnauthorized"},
	{ledger.ErrAccountFrozen, "AccountFrozen"},
	{ledger.ErrInvalidAccountState, "InvalidAccountState"},
	{ledger.ErrInsufficientBalance, "InsufficientBalance"},
	{ledger.ErrOverflow, "MathOverflow"},
}

// ErrorCode names err for receipts, logs and API responses. Engine conditions
// take precedence over ledger conditions they may wrap.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := securewrap.Code(err); code != "" {
		return code
	}
	for _, entry := range coreCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}
