package securewrap

import (
	"fmt"
	"math/bits"
)

// SupplyReport is a snapshot of one pair's supply identity.
//
// Conservation holds when WrappedSupply + OrderEscrowedOriginal equals
// CustodyOriginal + RedistributedTokenSupply. With no redistribution and no
// open wrap orders this reduces to wrapped supply == custody original.
//
// FrozenInclusiveBalanced reports the gross form WrappedSupply ==
// CustodyOriginal + PermanentlyFrozenTokenSupply. On a conserved pair it
// holds only while redistributed equals permanently frozen supply and no wrap
// order is open, so it is informational and not part of Healthy.
type SupplyReport struct {
	WrappedMint                  [20]byte
	WrappedSupply                uint64
	CustodyOriginal              uint64
	CustodyWrapped               uint64
	PermanentlyFrozenTokenSupply uint64
	RedistributedTokenSupply     uint64
	OrderEscrowedOriginal        uint64
	Conserved                    bool
	RedistributionBounded        bool
	FrozenInclusiveBalanced      bool
}

// Healthy reports whether both checks passed.
func (r *SupplyReport) Healthy() bool {
	return r != nil && r.Conserved && r.RedistributionBounded
}

// Err describes the first failed check, or nil.
func (r *SupplyReport) Err() error {
	switch {
	case r == nil:
		return nil
	case !r.Conserved:
		return fmt.Errorf("securewrap: supply not conserved: wrapped %d + escrowed %d != custody %d + redistributed %d",
			r.WrappedSupply, r.OrderEscrowedOriginal, r.CustodyOriginal, r.RedistributedTokenSupply)
	case !r.RedistributionBounded:
		return fmt.Errorf("securewrap: redistributed %d exceeds permanently frozen %d",
			r.RedistributedTokenSupply, r.PermanentlyFrozenTokenSupply)
	default:
		return nil
	}
}

// CheckInvariants reads the ledger figures of the pair and evaluates its
// supply identity.
func (e *Engine) CheckInvariants(mint [20]byte) (*SupplyReport, error) {
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	wrapped, err := e.ledger.Mint(pair.WrappedMint)
	if err != nil {
		return nil, err
	}
	custodian := CustodyAddress(pair.WrappedMint)
	original, err := e.ledger.Account(pair.OriginalMint, custodian)
	if err != nil {
		return nil, err
	}
	escrowedWrapped, err := e.ledger.Account(pair.WrappedMint, custodian)
	if err != nil {
		return nil, err
	}
	report := &SupplyReport{
		WrappedMint:                  pair.WrappedMint,
		WrappedSupply:                wrapped.Supply,
		CustodyOriginal:              original.Balance,
		CustodyWrapped:               escrowedWrapped.Balance,
		PermanentlyFrozenTokenSupply: pair.PermanentlyFrozenTokenSupply,
		RedistributedTokenSupply:     pair.RedistributedTokenSupply,
		OrderEscrowedOriginal:        pair.OrderEscrowedOriginal,
		RedistributionBounded:        pair.RedistributedTokenSupply <= pair.PermanentlyFrozenTokenSupply,
	}
	lhsLo, lhsHi := add128(wrapped.Supply, pair.OrderEscrowedOriginal)
	rhsLo, rhsHi := add128(original.Balance, pair.RedistributedTokenSupply)
	report.Conserved = lhsLo == rhsLo && lhsHi == rhsHi
	grossLo, grossHi := add128(original.Balance, pair.PermanentlyFrozenTokenSupply)
	report.FrozenInclusiveBalanced = grossHi == 0 && grossLo == wrapped.Supply
	return report, nil
}

func add128(a, b uint64) (lo, hi uint64) {
	lo, hi = bits.Add64(a, b, 0)
	return lo, hi
}
