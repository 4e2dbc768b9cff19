package securewrap

import (
	"fmt"
	"strconv"

	"securewrap/core/ledger"
	"securewrap/crypto"
)

// Initialize creates the global configuration with authority as its only
// administrator. It can run once.
func (e *Engine) Initialize(authority [20]byte) (*GlobalState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.GlobalGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	global := newGlobalState(authority)
	if err := e.state.GlobalPut(global); err != nil {
		return nil, err
	}
	e.emit(newEvent(EventTypeInitialized, [20]byte{}, map[string]string{
		"authority":          crypto.Format(authority),
		"unwrapDelaySeconds": timeAttr(global.UnwrapDelaySeconds),
	}))
	return global.Clone(), nil
}

// CreateMintPair registers the wrapped counterpart of an existing original
// mint. The wrapped mint shares the original's decimals and is minted, burned
// and frozen only by the pair's custody.
func (e *Engine) CreateMintPair(caller, original [20]byte) (*MintPair, error) {
	if _, err := e.authorize(caller); err != nil {
		return nil, err
	}
	source, err := e.ledger.Mint(original)
	if err != nil {
		return nil, fmt.Errorf("securewrap: original mint: %w", err)
	}
	wrapped := DeriveWrappedMint(original)
	if _, ok, err := e.state.MintPairGet(wrapped); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMintPairExists
	}
	custodian := CustodyAddress(wrapped)
	if err := e.ledger.CreateMint(&ledger.Mint{
		ID:              wrapped,
		Decimals:        source.Decimals,
		MintAuthority:   custodian,
		FreezeAuthority: custodian,
	}); err != nil {
		return nil, err
	}
	pair := &MintPair{OriginalMint: original, WrappedMint: wrapped}
	if err := e.state.MintPairPut(pair); err != nil {
		return nil, err
	}
	e.emit(newEvent(EventTypeMintPairCreated, wrapped, map[string]string{
		"originalMint": crypto.Format(original),
		"custody":      crypto.Format(custodian),
	}))
	return pair.Clone(), nil
}

// SetSwitch opens or closes one of the global circuit breakers.
func (e *Engine) SetSwitch(caller [20]byte, s Switch, allowed bool) error {
	global, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if !global.set(s, allowed) {
		return fmt.Errorf("securewrap: unknown switch %d", s)
	}
	if err := e.state.GlobalPut(global); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeSwitchChanged, [20]byte{}, map[string]string{
		"switch":  s.String(),
		"allowed": strconv.FormatBool(allowed),
	}))
	return nil
}

func (e *Engine) HaltOrders(caller [20]byte) error { return e.SetSwitch(caller, SwitchOrders, false) }

func (e *Engine) ResumeOrders(caller [20]byte) error { return e.SetSwitch(caller, SwitchOrders, true) }

func (e *Engine) HaltWrapOrders(caller [20]byte) error {
	return e.SetSwitch(caller, SwitchWrapOrders, false)
}

func (e *Engine) ResumeWrapOrders(caller [20]byte) error {
	return e.SetSwitch(caller, SwitchWrapOrders, true)
}

func (e *Engine) HaltUnwrap(caller [20]byte) error { return e.SetSwitch(caller, SwitchUnwrap, false) }

func (e *Engine) ResumeUnwrap(caller [20]byte) error { return e.SetSwitch(caller, SwitchUnwrap, true) }

// SetUnwrapDelay changes the delay applied to future unwrap requests.
// Requests already queued keep their release time.
func (e *Engine) SetUnwrapDelay(caller [20]byte, seconds uint64) error {
	global, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if err := global.setUnwrapDelay(seconds); err != nil {
		return err
	}
	if err := e.state.GlobalPut(global); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeUnwrapDelayChanged, [20]byte{}, map[string]string{
		"unwrapDelaySeconds": timeAttr(global.UnwrapDelaySeconds),
	}))
	return nil
}
