package securewrap

import (
	"fmt"
	"strings"
)

const (
	// MaxUnwrapDelaySeconds bounds the global unwrap delay and is its default.
	MaxUnwrapDelaySeconds int64 = 86_400
	// FreezeCooldownSeconds must elapse after a thaw before the account can be
	// frozen again. Unwraps take at most one day, leaving users time to exit.
	FreezeCooldownSeconds int64 = 3 * 24 * 60 * 60
	// MaxFreezePeriodSeconds bounds a single freeze.
	MaxFreezePeriodSeconds uint64 = 14 * 24 * 60 * 60
)

// Side selects which asset an order escrows. The zero value is invalid.
type Side uint8

const (
	SideNone Side = iota
	SideWrap
	SideUnwrap
)

func (s Side) String() string {
	switch s {
	case SideWrap:
		return "wrap"
	case SideUnwrap:
		return "unwrap"
	default:
		return "none"
	}
}

// Valid reports whether s is one of the two tradable sides.
func (s Side) Valid() bool {
	return s == SideWrap || s == SideUnwrap
}

// ParseSide accepts "wrap" or "unwrap" in any case.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "wrap":
		return SideWrap, nil
	case "unwrap":
		return SideUnwrap, nil
	default:
		return SideNone, fmt.Errorf("%w: %q", ErrOrderSideInvalid, raw)
	}
}

// GlobalState is the singleton configuration and circuit-breaker record.
type GlobalState struct {
	Authority          [20]byte
	UnwrapDelaySeconds int64
	UnwrapAllowed      bool
	OrdersAllowed      bool
	WrapOrdersAllowed  bool
}

// Clone returns a copy of the global state.
func (g *GlobalState) Clone() *GlobalState {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}

// MintPair tracks the supply counters shared by every user of one
// original/wrapped asset pair.
//
// Counters:
//  1. wrapped supply + OrderEscrowedOriginal == custody original + RedistributedTokenSupply
//  2. RedistributedTokenSupply <= PermanentlyFrozenTokenSupply
type MintPair struct {
	OriginalMint                 [20]byte
	WrappedMint                  [20]byte
	PermanentlyFrozenTokenSupply uint64
	RedistributedTokenSupply     uint64
	OrderEscrowedOriginal        uint64
}

// Clone returns a copy of the mint pair.
func (p *MintPair) Clone() *MintPair {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// UserTokenState is the freeze lifecycle record of one wrapped-token account.
type UserTokenState struct {
	Mint                  [20]byte
	Owner                 [20]byte
	WrappedAccount        [20]byte
	ThawEligibleTimestamp int64
	ThawedAtTimestamp     int64
	PermanentlyFrozen     bool
	DistributeFrozenFunds uint64
}

// Clone returns a copy of the user token state.
func (u *UserTokenState) Clone() *UserTokenState {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// PendingUnwrap is the single queued unwrap of one user for one pair.
type PendingUnwrap struct {
	Mint             [20]byte
	Owner            [20]byte
	WrappedAccount   [20]byte
	OriginalAccount  [20]byte
	ReleaseTimestamp int64
	Amount           uint64
}

// Clone returns a copy of the pending unwrap.
func (p *PendingUnwrap) Clone() *PendingUnwrap {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Order is a maker's standing discounted offer for one side.
type Order struct {
	Mint            [20]byte
	Owner           [20]byte
	OriginalAccount [20]byte
	WrappedAccount  [20]byte
	Side            Side
	AmountIn        uint64
	AmountOut       uint64
}

// Clone returns a copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
