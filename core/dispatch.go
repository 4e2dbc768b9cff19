package core

import (
	"fmt"

	"securewrap/core/ledger"
	"securewrap/native/securewrap"
)

func (x *execution) run(op Operation, caller [20]byte, req *Request) (any, error) {
	a := &args{req: req}
	e := x.engine
	switch op {
	case OpInitialize:
		global, err := e.Initialize(caller)
		if err != nil {
			return nil, err
		}
		return newGlobalView(global), nil

	case OpCreateMintPair:
		original := a.addr("original", req.Original)
		if a.err != nil {
			return nil, a.err
		}
		x.touch(securewrap.DeriveWrappedMint(original))
		pair, err := e.CreateMintPair(caller, original)
		if err != nil {
			return nil, err
		}
		return newPairView(pair, nil), nil

	case OpHaltOrders, OpResumeOrders, OpHaltWrapOrders, OpResumeWrapOrders, OpHaltUnwrap, OpResumeUnwrap:
		s, allowed := switchFor(op)
		return nil, e.SetSwitch(caller, s, allowed)

	case OpSetUnwrapDelay:
		return nil, e.SetUnwrapDelay(caller, req.Seconds)

	case OpLedgerTransfer, OpLedgerFreeze, OpLedgerThaw:
		return nil, x.runLedger(op, caller, req, a)
	}

	mint := a.addr("mint", req.Mint)
	if a.err != nil {
		return nil, a.err
	}
	x.touch(mint)

	switch op {
	case OpWrap:
		return nil, e.Wrap(caller, mint, req.Amount)
	case OpUnwrapRequest:
		pending, err := e.RequestUnwrap(caller, mint, req.Amount)
		if err != nil {
			return nil, err
		}
		return newPendingUnwrapView(pending), nil
	case OpUnwrapRelease:
		return nil, e.ReleaseUnwrap(caller, mint)
	case OpUnwrapCancel:
		return nil, e.CancelUnwrap(caller, mint)
	case OpUnwrapCancelProgram:
		owner := a.addr("owner", req.Owner)
		if a.err != nil {
			return nil, a.err
		}
		return nil, e.CancelUnwrapProgram(caller, mint, owner)

	case OpFreeze, OpImmediateThaw, OpPermanentFreeze:
		owner := a.addr("owner", req.Owner)
		if a.err != nil {
			return nil, a.err
		}
		var (
			user *securewrap.UserTokenState
			err  error
		)
		switch op {
		case OpFreeze:
			user, err = e.Freeze(caller, mint, owner, req.PeriodSeconds)
		case OpImmediateThaw:
			user, err = e.ImmediateThaw(caller, mint, owner)
		default:
			user, err = e.PermanentFreeze(caller, mint, owner)
		}
		if err != nil {
			return nil, err
		}
		return newUserStateView(user), nil
	case OpThaw:
		// Thaw is permissionless; the owner defaults to the caller.
		owner := a.ownerOr(caller)
		if a.err != nil {
			return nil, a.err
		}
		user, err := e.Thaw(mint, owner)
		if err != nil {
			return nil, err
		}
		return newUserStateView(user), nil
	case OpRedistributeFrozenFunds:
		owner := a.addr("owner", req.Owner)
		receiver := a.addr("receiver", req.Receiver)
		if a.err != nil {
			return nil, a.err
		}
		return nil, e.RedistributeFrozenFunds(caller, mint, owner, receiver, req.Amount)

	case OpPlaceOrder:
		side := a.side()
		if a.err != nil {
			return nil, a.err
		}
		order, err := e.PlaceOrder(caller, mint, side, req.AmountIn, req.AmountOut)
		if err != nil {
			return nil, err
		}
		return newOrderView(order), nil
	case OpFillOrder:
		maker := a.addr("maker", req.Maker)
		side := a.side()
		if a.err != nil {
			return nil, a.err
		}
		order, err := e.FillOrder(caller, mint, maker, side)
		if err != nil {
			return nil, err
		}
		return newOrderView(order), nil
	case OpFillOrderProgram:
		maker := a.addr("maker", req.Maker)
		credit := a.addr("credit", req.Credit)
		side := a.side()
		if a.err != nil {
			return nil, a.err
		}
		order, err := e.FillOrderProgram(caller, mint, maker, credit, side)
		if err != nil {
			return nil, err
		}
		return newOrderView(order), nil
	case OpCancelOrder:
		side := a.side()
		if a.err != nil {
			return nil, a.err
		}
		return nil, e.CancelOrder(caller, mint, side)
	case OpCancelOrderProgram:
		owner := a.addr("owner", req.Owner)
		side := a.side()
		if a.err != nil {
			return nil, a.err
		}
		return nil, e.CancelOrderProgram(caller, mint, owner, side)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

func switchFor(op Operation) (securewrap.Switch, bool) {
	switch op {
	case OpHaltOrders:
		return securewrap.SwitchOrders, false
	case OpResumeOrders:
		return securewrap.SwitchOrders, true
	case OpHaltWrapOrders:
		return securewrap.SwitchWrapOrders, false
	case OpResumeWrapOrders:
		return securewrap.SwitchWrapOrders, true
	case OpHaltUnwrap:
		return securewrap.SwitchUnwrap, false
	default:
		return securewrap.SwitchUnwrap, true
	}
}

// runLedger applies a direct ledger instruction. The mint may be either side
// of a pair, so both candidate pairs are checked before commit.
func (x *execution) runLedger(op Operation, caller [20]byte, req *Request, a *args) error {
	mint := a.addr("mint", req.Mint)
	if op == OpLedgerTransfer {
		to := a.addr("receiver", req.Receiver)
		if a.err != nil {
			return a.err
		}
		if req.Amount == 0 {
			return fmt.Errorf("%w: amount required", ErrInvalidRequest)
		}
		x.touch(mint, securewrap.DeriveWrappedMint(mint))
		if err := x.ledger.Transfer(mint, caller, to, caller, req.Amount); err != nil {
			return err
		}
		x.events.Emit(ledger.NewTransferEvent(mint, caller, to, req.Amount))
		return nil
	}
	owner := a.addr("owner", req.Owner)
	if a.err != nil {
		return a.err
	}
	x.touch(mint, securewrap.DeriveWrappedMint(mint))
	frozen := op == OpLedgerFreeze
	var err error
	if frozen {
		err = x.ledger.Freeze(mint, owner, caller)
	} else {
		err = x.ledger.Thaw(mint, owner, caller)
	}
	if err != nil {
		return err
	}
	x.events.Emit(ledger.NewFreezeEvent(mint, owner, frozen))
	return nil
}
