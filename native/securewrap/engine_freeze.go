package securewrap

import (
	"strconv"

	"securewrap/crypto"
)

// Freeze locks the wrapped account of owner for periodSeconds. The record is
// created on the first freeze and kept afterwards for the cooldown check.
func (e *Engine) Freeze(caller, mint, owner [20]byte, periodSeconds uint64) (*UserTokenState, error) {
	if _, err := e.authorize(caller); err != nil {
		return nil, err
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	account, err := e.ledger.Account(pair.WrappedMint, owner)
	if err != nil {
		return nil, err
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		user = newUserTokenState(mint, owner)
	}
	if err := user.bind(account); err != nil {
		return nil, err
	}
	now, err := e.currentTime()
	if err != nil {
		return nil, err
	}
	if err := user.freeze(account, now, periodSeconds); err != nil {
		return nil, err
	}
	if err := newCustody(pair, e.ledger).freezeAccount(owner); err != nil {
		return nil, err
	}
	if err := e.state.UserTokenStatePut(user); err != nil {
		return nil, err
	}
	e.emit(newEvent(EventTypeFrozen, mint, map[string]string{
		"owner":                 crypto.Format(owner),
		"thawEligibleTimestamp": timeAttr(user.ThawEligibleTimestamp),
	}))
	return user.Clone(), nil
}

// Thaw unlocks a frozen wrapped account whose freeze period has elapsed. Any
// caller may submit it.
func (e *Engine) Thaw(mint, owner [20]byte) (*UserTokenState, error) {
	return e.thaw(mint, owner, false, [20]byte{})
}

// ImmediateThaw unlocks a frozen wrapped account without waiting for the
// freeze period.
func (e *Engine) ImmediateThaw(caller, mint, owner [20]byte) (*UserTokenState, error) {
	if _, err := e.authorize(caller); err != nil {
		return nil, err
	}
	return e.thaw(mint, owner, true, caller)
}

func (e *Engine) thaw(mint, owner [20]byte, immediate bool, actor [20]byte) (*UserTokenState, error) {
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	account, err := e.ledger.Account(pair.WrappedMint, owner)
	if err != nil {
		return nil, err
	}
	if !account.Frozen {
		return nil, ErrInvalidThaw
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserTokenStateNotFound
	}
	if err := user.bind(account); err != nil {
		return nil, err
	}
	now, err := e.currentTime()
	if err != nil {
		return nil, err
	}
	if immediate {
		err = user.immediateThaw(account, now)
	} else {
		err = user.thaw(account, now)
	}
	if err != nil {
		return nil, err
	}
	if err := newCustody(pair, e.ledger).thawAccount(owner); err != nil {
		return nil, err
	}
	if err := e.state.UserTokenStatePut(user); err != nil {
		return nil, err
	}
	attrs := map[string]string{
		"owner":             crypto.Format(owner),
		"thawedAtTimestamp": timeAttr(user.ThawedAtTimestamp),
		"immediate":         strconv.FormatBool(immediate),
	}
	if immediate {
		attrs["actor"] = crypto.Format(actor)
	}
	e.emit(newEvent(EventTypeThawed, mint, attrs))
	return user.Clone(), nil
}

// PermanentFreeze makes the freeze of owner irreversible. Both the wrapped and
// the original account must already be frozen. The wrapped balance is added
// to the pair's permanently frozen supply.
func (e *Engine) PermanentFreeze(caller, mint, owner [20]byte) (*UserTokenState, error) {
	if _, err := e.authorize(caller); err != nil {
		return nil, err
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	original, wrapped, err := e.holderAccounts(pair, owner)
	if err != nil {
		return nil, err
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidPermanentFreeze
	}
	if err := user.bind(wrapped); err != nil {
		return nil, err
	}
	if err := user.permanentFreeze(original, wrapped); err != nil {
		return nil, err
	}
	if err := newCustody(pair, e.ledger).addPermanentlyFrozen(wrapped.Balance); err != nil {
		return nil, err
	}
	if err := e.state.MintPairPut(pair); err != nil {
		return nil, err
	}
	if err := e.state.UserTokenStatePut(user); err != nil {
		return nil, err
	}
	e.emit(newEvent(EventTypePermanentlyFrozen, mint, map[string]string{
		"owner":  crypto.Format(owner),
		"amount": amountAttr(wrapped.Balance),
	}))
	return user.Clone(), nil
}

// RedistributeFrozenFunds mints amount of the wrapped asset to receiver on
// behalf of a permanently frozen owner. The frozen balance itself is never
// moved; the cumulative distribution is bounded by it.
func (e *Engine) RedistributeFrozenFunds(caller, mint, owner, receiver [20]byte, amount uint64) error {
	if _, err := e.authorize(caller); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidTokenAmount
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	account, err := e.ledger.Account(pair.WrappedMint, owner)
	if err != nil {
		return err
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidFrozenFundDistribution
	}
	if err := user.bind(account); err != nil {
		return err
	}
	if err := user.recordDistribution(account, amount); err != nil {
		return err
	}
	c := newCustody(pair, e.ledger)
	if err := c.addRedistributed(amount); err != nil {
		return err
	}
	if err := c.mintWrapped(receiver, amount); err != nil {
		return err
	}
	if err := e.state.MintPairPut(pair); err != nil {
		return err
	}
	if err := e.state.UserTokenStatePut(user); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeFundsRedistributed, mint, map[string]string{
		"owner":       crypto.Format(owner),
		"receiver":    crypto.Format(receiver),
		"amount":      amountAttr(amount),
		"distributed": amountAttr(user.DistributeFrozenFunds),
	}))
	return nil
}
