package securewrap

import (
	"securewrap/core/ledger"
)

func newOrder(mint, owner, original [20]byte, side Side, amountIn, amountOut uint64) (*Order, error) {
	if !side.Valid() {
		return nil, ErrOrderSideInvalid
	}
	if amountIn == 0 || amountOut == 0 {
		return nil, ErrInvalidTokenAmount
	}
	switch side {
	case SideUnwrap:
		if amountIn <= amountOut {
			return nil, ErrInvalidOrderAmount
		}
	case SideWrap:
		if amountOut <= amountIn {
			return nil, ErrInvalidOrderAmount
		}
	}
	return &Order{
		Mint:            mint,
		Owner:           owner,
		OriginalAccount: ledger.AccountID(original, owner),
		WrappedAccount:  ledger.AccountID(mint, owner),
		Side:            side,
		AmountIn:        amountIn,
		AmountOut:       amountOut,
	}, nil
}

// escrowMint is the mint the maker gives up when placing the order.
func (o *Order) escrowMint(pair *MintPair) [20]byte {
	switch o.Side {
	case SideUnwrap:
		return pair.WrappedMint
	default:
		return pair.OriginalMint
	}
}

// fillMint is the mint the filler pays the maker in.
func (o *Order) fillMint(pair *MintPair) [20]byte {
	switch o.Side {
	case SideUnwrap:
		return pair.OriginalMint
	default:
		return pair.WrappedMint
	}
}

// orderAllowed applies the circuit breakers and the maker freeze check shared
// by placing and filling.
func orderAllowed(global *GlobalState, side Side, makerOriginal, makerWrapped *ledger.Account) error {
	if !global.OrdersAllowed {
		return ErrOrdersHalted
	}
	switch side {
	case SideWrap:
		if !global.WrapOrdersAllowed {
			return ErrWrapOrdersHalted
		}
	case SideUnwrap:
	default:
		return ErrOrderSideInvalid
	}
	if makerOriginal.Frozen || makerWrapped.Frozen {
		return ErrFillOrderFrozenAccount
	}
	return nil
}
