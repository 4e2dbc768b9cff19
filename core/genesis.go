package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"securewrap/core/genesis"
	"securewrap/core/ledger"
	"securewrap/core/state"
	"securewrap/crypto"
	"securewrap/native/securewrap"
)

// ApplyGenesis bootstraps an empty node from spec in a single commit. It
// returns a nil receipt when the node is already initialized.
func (n *Node) ApplyGenesis(ctx context.Context, spec *genesis.GenesisSpec) (*Receipt, error) {
	if spec == nil {
		return nil, fmt.Errorf("core: genesis spec must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	n.execMu.Lock()
	defer n.execMu.Unlock()

	initialized := false
	if err := n.state.View(func(tx *state.Tx) error {
		_, ok, err := tx.GlobalGet()
		initialized = ok
		return err
	}); err != nil {
		return nil, err
	}
	if initialized {
		return nil, nil
	}

	now := n.clock().Unix()
	if ts := spec.GenesisTimestamp(); !ts.IsZero() {
		now = ts.Unix()
	}
	seq := n.sequence + 1
	authority := spec.AuthorityAddress()
	receipt := &Receipt{
		ID:        uuid.New(),
		Sequence:  seq,
		Operation: opGenesis,
		Caller:    crypto.Format(authority),
		Timestamp: now,
	}

	tx := n.state.Begin()
	x := n.bind(tx, now)
	err := x.genesis(spec)
	if err == nil {
		err = n.commit(x, seq)
	}
	if err != nil {
		tx.Discard()
		return nil, fmt.Errorf("core: apply genesis: %w", err)
	}
	n.sequence = seq
	receipt.Events = x.events.Events()
	n.afterCommit(ctx, receipt, "", x)
	n.logger.Info("genesis applied",
		slog.String("caller", receipt.Caller),
		slog.Uint64("sequence", seq),
		slog.Int("mints", len(spec.Mints)),
		slog.Int("pairs", len(spec.Pairs)))
	return receipt, nil
}

func (x *execution) genesis(spec *genesis.GenesisSpec) error {
	for _, m := range spec.MintSpecs() {
		if err := x.ledger.CreateMint(&ledger.Mint{
			ID:              m.IDBytes(),
			Decimals:        m.Decimals,
			MintAuthority:   m.MintAuthorityBytes(),
			FreezeAuthority: m.FreezeAuthorityBytes(),
		}); err != nil {
			return fmt.Errorf("mint %s: %w", m.Symbol, err)
		}
	}
	for _, alloc := range spec.Allocations() {
		mint, err := x.ledger.Mint(alloc.Mint)
		if err != nil {
			return err
		}
		if err := x.ledger.MintTo(alloc.Mint, alloc.Owner, mint.MintAuthority, alloc.Amount); err != nil {
			return fmt.Errorf("alloc %s: %w", crypto.Format(alloc.Owner), err)
		}
		x.events.Emit(ledger.NewMintEvent(alloc.Mint, alloc.Owner, alloc.Amount))
	}
	authority := spec.AuthorityAddress()
	if _, err := x.engine.Initialize(authority); err != nil {
		return err
	}
	if spec.UnwrapDelaySeconds != nil {
		if err := x.engine.SetUnwrapDelay(authority, *spec.UnwrapDelaySeconds); err != nil {
			return err
		}
	}
	for _, original := range spec.PairMints() {
		x.touch(securewrap.DeriveWrappedMint(original))
		if _, err := x.engine.CreateMintPair(authority, original); err != nil {
			return fmt.Errorf("pair %s: %w", crypto.Format(original), err)
		}
	}
	return nil
}
