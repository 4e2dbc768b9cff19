package securewrap

// GlobalState returns the global configuration.
func (e *Engine) GlobalState() (*GlobalState, error) {
	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	return global.Clone(), nil
}

// MintPair returns the pair whose wrapped mint is mint.
func (e *Engine) MintPair(mint [20]byte) (*MintPair, error) {
	pair, err := e.loadPair(mint)
	if err != nil {
		return nil, err
	}
	return pair.Clone(), nil
}

// UserTokenState returns the freeze record of owner.
func (e *Engine) UserTokenState(mint, owner [20]byte) (*UserTokenState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	user, ok, err := e.loadUserState(mint, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserTokenStateNotFound
	}
	return user.Clone(), nil
}

// PendingUnwrap returns the queued unwrap of owner.
func (e *Engine) PendingUnwrap(mint, owner [20]byte) (*PendingUnwrap, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pending, err := e.loadPendingUnwrap(mint, owner)
	if err != nil {
		return nil, err
	}
	return pending.Clone(), nil
}

// Order returns the open order of owner on side.
func (e *Engine) Order(mint, owner [20]byte, side Side) (*Order, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(mint, owner, side)
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}
