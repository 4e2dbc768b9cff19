package securewrap

import (
	"strconv"

	"securewrap/core/types"
	"securewrap/crypto"
)

const (
	EventTypeInitialized        = "securewrap.initialized"
	EventTypeMintPairCreated    = "securewrap.mint_pair.created"
	EventTypeWrapped            = "securewrap.wrapped"
	EventTypeUnwrapRequested    = "securewrap.unwrap.requested"
	EventTypeUnwrapReleased     = "securewrap.unwrap.released"
	EventTypeUnwrapCancelled    = "securewrap.unwrap.cancelled"
	EventTypeFrozen             = "securewrap.frozen"
	EventTypeThawed             = "securewrap.thawed"
	EventTypePermanentlyFrozen  = "securewrap.permanently_frozen"
	EventTypeFundsRedistributed = "securewrap.funds.redistributed"
	EventTypeOrderPlaced        = "securewrap.order.placed"
	EventTypeOrderFilled        = "securewrap.order.filled"
	EventTypeOrderCancelled     = "securewrap.order.cancelled"
	EventTypeSwitchChanged      = "securewrap.switch.changed"
	EventTypeUnwrapDelayChanged = "securewrap.unwrap_delay.changed"
)

type wrapEvent struct {
	evt *types.Event
}

func (e wrapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e wrapEvent) Event() *types.Event { return e.evt }

func newEvent(eventType string, mint [20]byte, attrs map[string]string) *types.Event {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	if mint != ([20]byte{}) {
		attrs["mint"] = crypto.Format(mint)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func amountAttr(v uint64) string { return strconv.FormatUint(v, 10) }

func timeAttr(v int64) string { return strconv.FormatInt(v, 10) }

func newOrderEvent(eventType string, o *Order, actor [20]byte) *types.Event {
	attrs := map[string]string{
		"owner":     crypto.Format(o.Owner),
		"side":      o.Side.String(),
		"amountIn":  amountAttr(o.AmountIn),
		"amountOut": amountAttr(o.AmountOut),
	}
	if actor != ([20]byte{}) {
		attrs["actor"] = crypto.Format(actor)
	}
	return newEvent(eventType, o.Mint, attrs)
}

func newUnwrapEvent(eventType string, p *PendingUnwrap, actor [20]byte) *types.Event {
	attrs := map[string]string{
		"owner":            crypto.Format(p.Owner),
		"amount":           amountAttr(p.Amount),
		"releaseTimestamp": timeAttr(p.ReleaseTimestamp),
	}
	if actor != ([20]byte{}) {
		attrs["actor"] = crypto.Format(actor)
	}
	return newEvent(eventType, p.Mint, attrs)
}
