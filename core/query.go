package core

import (
	"securewrap/core/ledger"
	"securewrap/core/state"
	"securewrap/crypto"
	"securewrap/native/securewrap"
)

type GlobalView struct {
	Authority          string `json:"authority"`
	UnwrapDelaySeconds int64  `json:"unwrap_delay_seconds"`
	UnwrapAllowed      bool   `json:"unwrap_allowed"`
	OrdersAllowed      bool   `json:"orders_allowed"`
	WrapOrdersAllowed  bool   `json:"wrap_orders_allowed"`
}

type SupplyView struct {
	WrappedSupply           uint64 `json:"wrapped_supply"`
	CustodyOriginal         uint64 `json:"custody_original"`
	CustodyWrapped          uint64 `json:"custody_wrapped"`
	PermanentlyFrozen       uint64 `json:"permanently_frozen_token_supply"`
	Redistributed           uint64 `json:"redistributed_token_supply"`
	OrderEscrowedOriginal   uint64 `json:"order_escrowed_original"`
	Conserved               bool   `json:"conserved"`
	RedistributionBounded   bool   `json:"redistribution_bounded"`
	FrozenInclusiveBalanced bool   `json:"frozen_inclusive_balanced"`
	Healthy                 bool   `json:"healthy"`
	Error                   string `json:"error,omitempty"`
}

type PairView struct {
	OriginalMint                 string      `json:"original_mint"`
	WrappedMint                  string      `json:"wrapped_mint"`
	Custody                      string      `json:"custody"`
	PermanentlyFrozenTokenSupply uint64      `json:"permanently_frozen_token_supply"`
	RedistributedTokenSupply     uint64      `json:"redistributed_token_supply"`
	OrderEscrowedOriginal        uint64      `json:"order_escrowed_original"`
	Supply                       *SupplyView `json:"supply,omitempty"`
}

type UserStateView struct {
	Mint                  string `json:"mint"`
	Owner                 string `json:"owner"`
	WrappedAccount        string `json:"wrapped_account"`
	ThawEligibleTimestamp int64  `json:"thaw_eligible_timestamp"`
	ThawedAtTimestamp     int64  `json:"thawed_at_timestamp"`
	PermanentlyFrozen     bool   `json:"permanently_frozen"`
	DistributeFrozenFunds uint64 `json:"distribute_frozen_funds"`
}

type PendingUnwrapView struct {
	Mint             string `json:"mint"`
	Owner            string `json:"owner"`
	WrappedAccount   string `json:"wrapped_account"`
	OriginalAccount  string `json:"original_account"`
	ReleaseTimestamp int64  `json:"release_timestamp"`
	Amount           uint64 `json:"amount"`
}

type OrderView struct {
	Mint            string `json:"mint"`
	Owner           string `json:"owner"`
	OriginalAccount string `json:"original_account"`
	WrappedAccount  string `json:"wrapped_account"`
	Side            string `json:"side"`
	AmountIn        uint64 `json:"amount_in"`
	AmountOut       uint64 `json:"amount_out"`
}

type AccountView struct {
	ID      string `json:"id"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
	Frozen  bool   `json:"frozen"`
}

func newGlobalView(g *securewrap.GlobalState) *GlobalView {
	return &GlobalView{
		Authority:          crypto.Format(g.Authority),
		UnwrapDelaySeconds: g.UnwrapDelaySeconds,
		UnwrapAllowed:      g.UnwrapAllowed,
		OrdersAllowed:      g.OrdersAllowed,
		WrapOrdersAllowed:  g.WrapOrdersAllowed,
	}
}

func newSupplyView(r *securewrap.SupplyReport) *SupplyView {
	view := &SupplyView{
		WrappedSupply:           r.WrappedSupply,
		CustodyOriginal:         r.CustodyOriginal,
		CustodyWrapped:          r.CustodyWrapped,
		PermanentlyFrozen:       r.PermanentlyFrozenTokenSupply,
		Redistributed:           r.RedistributedTokenSupply,
		OrderEscrowedOriginal:   r.OrderEscrowedOriginal,
		Conserved:               r.Conserved,
		RedistributionBounded:   r.RedistributionBounded,
		FrozenInclusiveBalanced: r.FrozenInclusiveBalanced,
		Healthy:                 r.Healthy(),
	}
	if err := r.Err(); err != nil {
		view.Error = err.Error()
	}
	return view
}

func newPairView(p *securewrap.MintPair, report *securewrap.SupplyReport) *PairView {
	view := &PairView{
		OriginalMint:                 crypto.Format(p.OriginalMint),
		WrappedMint:                  crypto.Format(p.WrappedMint),
		Custody:                      crypto.Format(securewrap.CustodyAddress(p.WrappedMint)),
		PermanentlyFrozenTokenSupply: p.PermanentlyFrozenTokenSupply,
		RedistributedTokenSupply:     p.RedistributedTokenSupply,
		OrderEscrowedOriginal:        p.OrderEscrowedOriginal,
	}
	if report != nil {
		view.Supply = newSupplyView(report)
	}
	return view
}

func newUserStateView(u *securewrap.UserTokenState) *UserStateView {
	return &UserStateView{
		Mint:                  crypto.Format(u.Mint),
		Owner:                 crypto.Format(u.Owner),
		WrappedAccount:        crypto.Format(u.WrappedAccount),
		ThawEligibleTimestamp: u.ThawEligibleTimestamp,
		ThawedAtTimestamp:     u.ThawedAtTimestamp,
		PermanentlyFrozen:     u.PermanentlyFrozen,
		DistributeFrozenFunds: u.DistributeFrozenFunds,
	}
}

func newPendingUnwrapView(p *securewrap.PendingUnwrap) *PendingUnwrapView {
	return &PendingUnwrapView{
		Mint:             crypto.Format(p.Mint),
		Owner:            crypto.Format(p.Owner),
		WrappedAccount:   crypto.Format(p.WrappedAccount),
		OriginalAccount:  crypto.Format(p.OriginalAccount),
		ReleaseTimestamp: p.ReleaseTimestamp,
		Amount:           p.Amount,
	}
}

func newOrderView(o *securewrap.Order) *OrderView {
	return &OrderView{
		Mint:            crypto.Format(o.Mint),
		Owner:           crypto.Format(o.Owner),
		OriginalAccount: crypto.Format(o.OriginalAccount),
		WrappedAccount:  crypto.Format(o.WrappedAccount),
		Side:            o.Side.String(),
		AmountIn:        o.AmountIn,
		AmountOut:       o.AmountOut,
	}
}

func newAccountView(acc *ledger.Account) *AccountView {
	return &AccountView{
		ID:      crypto.Format(acc.ID()),
		Mint:    crypto.Format(acc.Mint),
		Owner:   crypto.Format(acc.Owner),
		Balance: acc.Balance,
		Frozen:  acc.Frozen,
	}
}

// view runs fn against a read-only engine over committed state.
func (n *Node) view(fn func(tx *state.Tx, e *securewrap.Engine, l *ledger.Ledger) error) error {
	n.execMu.RLock()
	defer n.execMu.RUnlock()
	return n.state.View(func(tx *state.Tx) error {
		l := ledger.New(tx)
		e := securewrap.NewEngine()
		e.SetState(tx)
		e.SetLedger(l)
		return fn(tx, e, l)
	})
}

func (n *Node) GlobalState() (*GlobalView, error) {
	var out *GlobalView
	err := n.view(func(_ *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		global, err := e.GlobalState()
		if err != nil {
			return err
		}
		out = newGlobalView(global)
		return nil
	})
	return out, err
}

// MintPair returns the pair with its live supply figures.
func (n *Node) MintPair(mint [20]byte) (*PairView, error) {
	var out *PairView
	err := n.view(func(_ *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		pair, err := e.MintPair(mint)
		if err != nil {
			return err
		}
		report, err := e.CheckInvariants(mint)
		if err != nil {
			return err
		}
		out = newPairView(pair, report)
		return nil
	})
	return out, err
}

// MintPairs lists every pair in creation order.
func (n *Node) MintPairs() ([]*PairView, error) {
	var out []*PairView
	err := n.view(func(tx *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		mints, err := tx.MintPairs()
		if err != nil {
			return err
		}
		out = make([]*PairView, 0, len(mints))
		for _, mint := range mints {
			pair, err := e.MintPair(mint)
			if err != nil {
				return err
			}
			out = append(out, newPairView(pair, nil))
		}
		return nil
	})
	return out, err
}

func (n *Node) Invariants(mint [20]byte) (*SupplyView, error) {
	var out *SupplyView
	err := n.view(func(_ *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		report, err := e.CheckInvariants(mint)
		if err != nil {
			return err
		}
		out = newSupplyView(report)
		return nil
	})
	return out, err
}

func (n *Node) UserTokenState(mint, owner [20]byte) (*UserStateView, error) {
	var out *UserStateView
	err := n.view(func(_ *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		user, err := e.UserTokenState(mint, owner)
		if err != nil {
			return err
		}
		out = newUserStateView(user)
		return nil
	})
	return out, err
}

func (n *Node) PendingUnwrap(mint, owner [20]byte) (*PendingUnwrapView, error) {
	var out *PendingUnwrapView
	err := n.view(func(_ *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		pending, err := e.PendingUnwrap(mint, owner)
		if err != nil {
			return err
		}
		out = newPendingUnwrapView(pending)
		return nil
	})
	return out, err
}

func (n *Node) Order(mint, owner [20]byte, side securewrap.Side) (*OrderView, error) {
	var out *OrderView
	err := n.view(func(_ *state.Tx, e *securewrap.Engine, _ *ledger.Ledger) error {
		order, err := e.Order(mint, owner, side)
		if err != nil {
			return err
		}
		out = newOrderView(order)
		return nil
	})
	return out, err
}

// Account returns the ledger account of owner. Accounts that were never
// credited read as empty.
func (n *Node) Account(mint, owner [20]byte) (*AccountView, error) {
	var out *AccountView
	err := n.view(func(_ *state.Tx, _ *securewrap.Engine, l *ledger.Ledger) error {
		acc, err := l.Account(mint, owner)
		if err != nil {
			return err
		}
		out = newAccountView(acc)
		return nil
	})
	return out, err
}
