package securewrap

import (
	"securewrap/crypto"
)

// Wrap escrows amount of the original asset from caller and mints the same
// amount of the wrapped asset back to caller.
func (e *Engine) Wrap(caller, mint [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrInvalidTokenAmount
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	c := newCustody(pair, e.ledger)
	if err := e.ledger.Transfer(pair.OriginalMint, caller, c.address(), caller, amount); err != nil {
		return err
	}
	if err := c.mintWrapped(caller, amount); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeWrapped, mint, map[string]string{
		"owner":  crypto.Format(caller),
		"amount": amountAttr(amount),
	}))
	return nil
}

// RequestUnwrap escrows amount of the wrapped asset and queues its release
// after the current unwrap delay.
func (e *Engine) RequestUnwrap(caller, mint [20]byte, amount uint64) (*PendingUnwrap, error) {
	if amount == 0 {
		return nil, ErrInvalidTokenAmount
	}
	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	if !global.UnwrapAllowed {
		return nil, ErrUnwrapHalted
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	if _, ok, err := e.state.PendingUnwrapGet(mint, caller); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPendingUnwrapExists
	}
	now, err := e.currentTime()
	if err != nil {
		return nil, err
	}
	pending, err := newPendingUnwrap(pair, caller, now, global.UnwrapDelaySeconds, amount)
	if err != nil {
		return nil, err
	}
	c := newCustody(pair, e.ledger)
	if err := e.ledger.Transfer(pair.WrappedMint, caller, c.address(), caller, amount); err != nil {
		return nil, err
	}
	if err := e.state.PendingUnwrapPut(pending); err != nil {
		return nil, err
	}
	e.emit(newUnwrapEvent(EventTypeUnwrapRequested, pending, [20]byte{}))
	return pending.Clone(), nil
}

// ReleaseUnwrap settles the caller's pending unwrap once its release time has
// passed: the escrowed wrapped amount is burned and the same amount of the
// original asset leaves custody.
func (e *Engine) ReleaseUnwrap(caller, mint [20]byte) error {
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if !global.UnwrapAllowed {
		return ErrUnwrapHalted
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	pending, err := e.loadPendingUnwrap(mint, caller)
	if err != nil {
		return err
	}
	original, wrapped, err := e.holderAccounts(pair, caller)
	if err != nil {
		return err
	}
	now, err := e.currentTime()
	if err != nil {
		return err
	}
	if err := pending.validateRelease(original, wrapped, now); err != nil {
		return err
	}
	c := newCustody(pair, e.ledger)
	if err := c.burnWrapped(pending.Amount); err != nil {
		return err
	}
	if err := c.sendOriginal(caller, pending.Amount); err != nil {
		return err
	}
	if err := e.state.PendingUnwrapDelete(mint, caller); err != nil {
		return err
	}
	e.emit(newUnwrapEvent(EventTypeUnwrapReleased, pending, [20]byte{}))
	return nil
}

// CancelUnwrap returns the caller's escrowed wrapped amount and drops the
// queue entry. It is not subject to the unwrap circuit breaker.
func (e *Engine) CancelUnwrap(caller, mint [20]byte) error {
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	pending, err := e.loadPendingUnwrap(mint, caller)
	if err != nil {
		return err
	}
	if err := newCustody(pair, e.ledger).sendWrapped(caller, pending.Amount); err != nil {
		return err
	}
	if err := e.state.PendingUnwrapDelete(mint, caller); err != nil {
		return err
	}
	e.emit(newUnwrapEvent(EventTypeUnwrapCancelled, pending, caller))
	return nil
}

// CancelUnwrapProgram lets the authority unwind the pending unwrap of a
// permanently frozen owner. The escrow goes back into the frozen account and
// counts as permanently frozen supply.
func (e *Engine) CancelUnwrapProgram(caller, mint, owner [20]byte) error {
	if _, err := e.authorize(caller); err != nil {
		return err
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	pending, err := e.loadPendingUnwrap(mint, owner)
	if err != nil {
		return err
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return err
	}
	if !ok || !user.PermanentlyFrozen {
		return ErrProgramCancelUnwrap
	}
	if err := newCustody(pair, e.ledger).sendWrappedToFrozenAccount(owner, pending.Amount); err != nil {
		return err
	}
	if err := e.state.MintPairPut(pair); err != nil {
		return err
	}
	if err := e.state.PendingUnwrapDelete(mint, owner); err != nil {
		return err
	}
	e.emit(newUnwrapEvent(EventTypeUnwrapCancelled, pending, caller))
	return nil
}
