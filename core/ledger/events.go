package ledger

import (
	"strconv"

	"securewrap/core/types"
	"securewrap/crypto"
)

const (
	EventTypeTransfer = "ledger.transfer"
	EventTypeFreeze   = "ledger.freeze"
	EventTypeThaw     = "ledger.thaw"
	EventTypeMint     = "ledger.mint"
)

// Event wraps a ledger payload for emission.
type Event struct {
	payload *types.Event
}

func (e Event) EventType() string { return e.payload.Type }

func (e Event) Event() *types.Event { return e.payload }

// NewTransferEvent describes a direct holder-to-holder transfer.
func NewTransferEvent(mint, from, to [20]byte, amount uint64) Event {
	return Event{payload: &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"mint":   crypto.Format(mint),
			"from":   crypto.Format(from),
			"to":     crypto.Format(to),
			"amount": strconv.FormatUint(amount, 10),
		},
	}}
}

// NewFreezeEvent describes a freeze or thaw applied by a mint's freeze authority.
func NewFreezeEvent(mint, owner [20]byte, frozen bool) Event {
	eventType := EventTypeThaw
	if frozen {
		eventType = EventTypeFreeze
	}
	return Event{payload: &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"mint":  crypto.Format(mint),
			"owner": crypto.Format(owner),
		},
	}}
}

// NewMintEvent describes new units credited at genesis.
func NewMintEvent(mint, to [20]byte, amount uint64) Event {
	return Event{payload: &types.Event{
		Type: EventTypeMint,
		Attributes: map[string]string{
			"mint":   crypto.Format(mint),
			"to":     crypto.Format(to),
			"amount": strconv.FormatUint(amount, 10),
		},
	}}
}
