package securewrap

import (
	"math"

	"securewrap/core/ledger"
)

func newPendingUnwrap(pair *MintPair, owner [20]byte, now, delay int64, amount uint64) (*PendingUnwrap, error) {
	if delay < 0 || now > math.MaxInt64-delay {
		return nil, ErrMathOverflow
	}
	return &PendingUnwrap{
		Mint:             pair.WrappedMint,
		Owner:            owner,
		WrappedAccount:   ledger.AccountID(pair.WrappedMint, owner),
		OriginalAccount:  ledger.AccountID(pair.OriginalMint, owner),
		ReleaseTimestamp: now + delay,
		Amount:           amount,
	}, nil
}

func (p *PendingUnwrap) validateRelease(original, wrapped *ledger.Account, now int64) error {
	if original.Frozen || wrapped.Frozen {
		return ErrUnwrapFrozenAccount
	}
	if now < p.ReleaseTimestamp {
		return ErrPrematurePendingUnwrap
	}
	return nil
}
