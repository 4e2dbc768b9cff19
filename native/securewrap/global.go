package securewrap

// Switch names one of the global circuit breakers.
type Switch uint8

const (
	SwitchOrders Switch = iota + 1
	SwitchWrapOrders
	SwitchUnwrap
)

func (s Switch) String() string {
	switch s {
	case SwitchOrders:
		return "orders"
	case SwitchWrapOrders:
		return "wrap_orders"
	case SwitchUnwrap:
		return "unwrap"
	default:
		return "unknown"
	}
}

func newGlobalState(authority [20]byte) *GlobalState {
	return &GlobalState{
		Authority:          authority,
		UnwrapDelaySeconds: MaxUnwrapDelaySeconds,
		UnwrapAllowed:      true,
		OrdersAllowed:      true,
		WrapOrdersAllowed:  true,
	}
}

func (g *GlobalState) authorize(caller [20]byte) error {
	if g.Authority != caller {
		return ErrUnauthorized
	}
	return nil
}

func (g *GlobalState) set(s Switch, allowed bool) bool {
	switch s {
	case SwitchOrders:
		g.OrdersAllowed = allowed
	case SwitchWrapOrders:
		g.WrapOrdersAllowed = allowed
	case SwitchUnwrap:
		g.UnwrapAllowed = allowed
	default:
		return false
	}
	return true
}

func (g *GlobalState) setUnwrapDelay(seconds uint64) error {
	if seconds > uint64(MaxUnwrapDelaySeconds) {
		return ErrSetUnwrapDelayMaximumExceeded
	}
	g.UnwrapDelaySeconds = int64(seconds)
	return nil
}
