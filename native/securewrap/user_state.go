package securewrap

import (
	"math"
	"math/bits"

	"securewrap/core/ledger"
)

func newUserTokenState(mint, owner [20]byte) *UserTokenState {
	return &UserTokenState{
		Mint:           mint,
		Owner:          owner,
		WrappedAccount: ledger.AccountID(mint, owner),
	}
}

// bind checks that the record still belongs to the given wrapped account.
func (u *UserTokenState) bind(account *ledger.Account) error {
	if u.WrappedAccount != account.ID() || u.Owner != account.Owner || u.Mint != account.Mint {
		return ErrInvalidUserTokenStateAccount
	}
	return nil
}

// freeze moves the lifecycle from unfrozen to freezing. The ledger freeze
// itself is issued by the caller.
func (u *UserTokenState) freeze(account *ledger.Account, now int64, periodSeconds uint64) error {
	if account.Frozen {
		return ErrIneligibleFreeze
	}
	if u.ThawedAtTimestamp > math.MaxInt64-FreezeCooldownSeconds {
		return ErrMathOverflow
	}
	if now < u.ThawedAtTimestamp+FreezeCooldownSeconds {
		return ErrIneligibleFreeze
	}
	if periodSeconds > MaxFreezePeriodSeconds {
		return ErrFreezePeriodMaximumExceeded
	}
	if now > math.MaxInt64-int64(periodSeconds) {
		return ErrMathOverflow
	}
	u.ThawEligibleTimestamp = now + int64(periodSeconds)
	return nil
}

func (u *UserTokenState) thawable(account *ledger.Account) error {
	if !account.Frozen {
		return ErrInvalidThaw
	}
	if u.PermanentlyFrozen {
		return ErrAccountPermanentlyFrozen
	}
	return nil
}

func (u *UserTokenState) thaw(account *ledger.Account, now int64) error {
	if err := u.thawable(account); err != nil {
		return err
	}
	if now < u.ThawEligibleTimestamp {
		return ErrPrematureThaw
	}
	u.ThawedAtTimestamp = now
	return nil
}

func (u *UserTokenState) immediateThaw(account *ledger.Account, now int64) error {
	if err := u.thawable(account); err != nil {
		return err
	}
	u.ThawEligibleTimestamp = 0
	return u.thaw(account, now)
}

func (u *UserTokenState) permanentFreeze(original, wrapped *ledger.Account) error {
	if u.PermanentlyFrozen {
		return ErrAccountPermanentlyFrozen
	}
	if !original.Frozen || !wrapped.Frozen {
		return ErrInvalidPermanentFreeze
	}
	u.PermanentlyFrozen = true
	return nil
}

func (u *UserTokenState) recordDistribution(account *ledger.Account, amount uint64) error {
	if !u.PermanentlyFrozen || !account.Frozen {
		return ErrInvalidFrozenFundDistribution
	}
	total, carry := bits.Add64(u.DistributeFrozenFunds, amount, 0)
	if carry != 0 {
		return ErrMathOverflow
	}
	if total > account.Balance {
		return ErrFrozenFundDistributionExceed
	}
	u.DistributeFrozenFunds = total
	return nil
}
