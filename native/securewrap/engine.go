package securewrap

import (
	"time"

	"securewrap/core/events"
	"securewrap/core/ledger"
	"securewrap/core/types"
)

// engineState is the keyed record store the engine reads and writes. Lookups
// report absence through the boolean rather than an error.
type engineState interface {
	GlobalGet() (*GlobalState, bool, error)
	GlobalPut(*GlobalState) error
	MintPairGet(wrapped [20]byte) (*MintPair, bool, error)
	MintPairPut(*MintPair) error
	UserTokenStateGet(mint, owner [20]byte) (*UserTokenState, bool, error)
	UserTokenStatePut(*UserTokenState) error
	PendingUnwrapGet(mint, owner [20]byte) (*PendingUnwrap, bool, error)
	PendingUnwrapPut(*PendingUnwrap) error
	PendingUnwrapDelete(mint, owner [20]byte) error
	OrderGet(mint, owner [20]byte, side Side) (*Order, bool, error)
	OrderPut(*Order) error
	OrderDelete(mint, owner [20]byte, side Side) error
}

// Engine executes the wrapping, freezing, unwrap queue and order book
// operations. It performs no locking; callers serialise operations and run
// each one against a state and ledger view that commits all-or-nothing.
type Engine struct {
	state   engineState
	ledger  Ledger
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates an engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the record store used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the custody ledger.
func (e *Engine) SetLedger(l Ledger) { e.ledger = l }

// SetNowFunc overrides the time source. Passing nil restores the wall clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(wrapEvent{evt: event})
}

// currentTime reads the clock once. Operations must not call it twice.
func (e *Engine) currentTime() (int64, error) {
	var now int64
	if e.nowFn == nil {
		now = time.Now().Unix()
	} else {
		now = e.nowFn()
	}
	if now <= 0 {
		return 0, ErrInvalidClock
	}
	return now, nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) loadGlobal() (*GlobalState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	global, ok, err := e.state.GlobalGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return global, nil
}

// authorize loads the global state and checks caller against its authority.
func (e *Engine) authorize(caller [20]byte) (*GlobalState, error) {
	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	if err := global.authorize(caller); err != nil {
		return nil, err
	}
	return global, nil
}

func (e *Engine) loadPair(wrapped [20]byte) (*MintPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pair, ok, err := e.state.MintPairGet(wrapped)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintPairNotFound
	}
	return pair, nil
}

func (e *Engine) loadUserState(mint, owner [20]byte) (*UserTokenState, bool, error) {
	user, ok, err := e.state.UserTokenStateGet(mint, owner)
	if err != nil {
		return nil, false, err
	}
	return user, ok, nil
}

func (e *Engine) loadPendingUnwrap(mint, owner [20]byte) (*PendingUnwrap, error) {
	pending, ok, err := e.state.PendingUnwrapGet(mint, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPendingUnwrapNotInitialized
	}
	return pending, nil
}

func (e *Engine) loadOrder(mint, owner [20]byte, side Side) (*Order, error) {
	if !side.Valid() {
		return nil, ErrOrderSideInvalid
	}
	order, ok, err := e.state.OrderGet(mint, owner, side)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// holderAccounts returns the original and wrapped accounts of owner.
func (e *Engine) holderAccounts(pair *MintPair, owner [20]byte) (*ledger.Account, *ledger.Account, error) {
	original, err := e.ledger.Account(pair.OriginalMint, owner)
	if err != nil {
		return nil, nil, err
	}
	wrapped, err := e.ledger.Account(pair.WrappedMint, owner)
	if err != nil {
		return nil, nil, err
	}
	return original, wrapped, nil
}
