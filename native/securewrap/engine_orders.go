package securewrap

import (
	"math/bits"
)

// PlaceOrder escrows amountIn from the maker and records a standing offer to
// receive amountOut of the other asset. Unwrap orders escrow the wrapped
// asset and wrap orders escrow the original asset.
func (e *Engine) PlaceOrder(maker, mint [20]byte, side Side, amountIn, amountOut uint64) (*Order, error) {
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	order, err := newOrder(mint, maker, pair.OriginalMint, side, amountIn, amountOut)
	if err != nil {
		return nil, err
	}
	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	original, wrapped, err := e.holderAccounts(pair, maker)
	if err != nil {
		return nil, err
	}
	if err := orderAllowed(global, side, original, wrapped); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.OrderGet(mint, maker, side); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrOrderExists
	}
	c := newCustody(pair, e.ledger)
	if err := e.ledger.Transfer(order.escrowMint(pair), maker, c.address(), maker, amountIn); err != nil {
		return nil, err
	}
	switch side {
	case SideWrap:
		if err := c.addOrderEscrow(amountIn); err != nil {
			return nil, err
		}
		if err := e.state.MintPairPut(pair); err != nil {
			return nil, err
		}
	case SideUnwrap:
	}
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(newOrderEvent(EventTypeOrderPlaced, order, [20]byte{}))
	return order.Clone(), nil
}

// FillOrder settles the maker's order against the filler's funds: the filler
// pays amountOut straight to the maker and receives the escrowed amountIn.
func (e *Engine) FillOrder(filler, mint, maker [20]byte, side Side) (*Order, error) {
	pair, order, err := e.loadFillable(mint, maker, side)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(order.fillMint(pair), filler, maker, filler, order.AmountOut); err != nil {
		return nil, err
	}
	c := newCustody(pair, e.ledger)
	switch order.Side {
	case SideUnwrap:
		if err := c.sendWrapped(filler, order.AmountIn); err != nil {
			return nil, err
		}
	case SideWrap:
		if err := c.sendOriginal(filler, order.AmountIn); err != nil {
			return nil, err
		}
		if err := c.releaseOrderEscrow(order.AmountIn); err != nil {
			return nil, err
		}
		if err := e.state.MintPairPut(pair); err != nil {
			return nil, err
		}
	}
	if err := e.state.OrderDelete(mint, maker, side); err != nil {
		return nil, err
	}
	e.emit(newOrderEvent(EventTypeOrderFilled, order, filler))
	return order, nil
}

// FillOrderProgram fills an unwrap order out of custody. The maker receives
// amountOut of the original asset, the spread is paid in wrapped asset to
// credit and the remaining escrow is burned, so wrapped supply and custody
// shrink by the same amount.
func (e *Engine) FillOrderProgram(caller, mint, maker, credit [20]byte, side Side) (*Order, error) {
	if _, err := e.authorize(caller); err != nil {
		return nil, err
	}
	pair, order, err := e.loadFillable(mint, maker, side)
	if err != nil {
		return nil, err
	}
	switch order.Side {
	case SideUnwrap:
	case SideWrap:
		return nil, ErrProgramCannotFillWrapOrders
	default:
		return nil, ErrOrderSideInvalid
	}
	profit, borrow := bits.Sub64(order.AmountIn, order.AmountOut, 0)
	if borrow != 0 {
		return nil, ErrMathOverflow
	}
	c := newCustody(pair, e.ledger)
	if err := c.sendOriginal(maker, order.AmountOut); err != nil {
		return nil, err
	}
	if err := c.sendWrapped(credit, profit); err != nil {
		return nil, err
	}
	if err := c.burnWrapped(order.AmountOut); err != nil {
		return nil, err
	}
	if err := e.state.OrderDelete(mint, maker, side); err != nil {
		return nil, err
	}
	e.emit(newOrderEvent(EventTypeOrderFilled, order, caller))
	return order, nil
}

func (e *Engine) loadFillable(mint, maker [20]byte, side Side) (*MintPair, *Order, error) {
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, nil, err
	}
	order, err := e.loadOrder(mint, maker, side)
	if err != nil {
		return nil, nil, err
	}
	global, err := e.loadGlobal()
	if err != nil {
		return nil, nil, err
	}
	original, wrapped, err := e.holderAccounts(pair, maker)
	if err != nil {
		return nil, nil, err
	}
	if err := orderAllowed(global, order.Side, original, wrapped); err != nil {
		return nil, nil, err
	}
	return pair, order, nil
}

// CancelOrder returns the maker's escrow and drops the order.
func (e *Engine) CancelOrder(maker, mint [20]byte, side Side) error {
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	order, err := e.loadOrder(mint, maker, side)
	if err != nil {
		return err
	}
	c := newCustody(pair, e.ledger)
	switch order.Side {
	case SideUnwrap:
		if err := c.sendWrapped(maker, order.AmountIn); err != nil {
			return err
		}
	case SideWrap:
		if err := c.sendOriginal(maker, order.AmountIn); err != nil {
			return err
		}
		if err := c.releaseOrderEscrow(order.AmountIn); err != nil {
			return err
		}
		if err := e.state.MintPairPut(pair); err != nil {
			return err
		}
	}
	if err := e.state.OrderDelete(mint, maker, side); err != nil {
		return err
	}
	e.emit(newOrderEvent(EventTypeOrderCancelled, order, maker))
	return nil
}

// CancelOrderProgram lets the authority unwind the unwrap order of a
// permanently frozen maker, returning the escrow into the frozen account.
func (e *Engine) CancelOrderProgram(caller, mint, owner [20]byte, side Side) error {
	if _, err := e.authorize(caller); err != nil {
		return err
	}
	pair, err := e.loadPair(mint)
	if err != nil {
		return err
	}
	if side != SideUnwrap {
		return ErrProgramCancelOrder
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return err
	}
	if !ok || !user.PermanentlyFrozen {
		return ErrProgramCancelOrder
	}
	order, err := e.loadOrder(mint, owner, side)
	if err != nil {
		return err
	}
	if err := newCustody(pair, e.ledger).sendWrappedToFrozenAccount(owner, order.AmountIn); err != nil {
		return err
	}
	if err := e.state.MintPairPut(pair); err != nil {
		return err
	}
	if err := e.state.OrderDelete(mint, owner, side); err != nil {
		return err
	}
	e.emit(newOrderEvent(EventTypeOrderCancelled, order, caller))
	return nil
}
