package state

import (
	"bytes"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"securewrap/native/securewrap"
)

var (
	globalKey       = ethcrypto.Keccak256([]byte("swt/global"))
	pairIndexKey    = ethcrypto.Keccak256([]byte("swt/pairs"))
	sequenceKey     = ethcrypto.Keccak256([]byte("swt/node/sequence"))
	pairPrefix      = []byte("swt/pair/")
	userStatePrefix = []byte("swt/user/")
	unwrapPrefix    = []byte("swt/unwrap/")
	orderPrefix     = []byte("swt/order/")
)

func recordKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func pairKey(wrapped [20]byte) []byte { return recordKey(pairPrefix, wrapped[:]) }

func userStateKey(mint, owner [20]byte) []byte {
	return recordKey(userStatePrefix, mint[:], owner[:])
}

func unwrapKey(mint, owner [20]byte) []byte { return recordKey(unwrapPrefix, mint[:], owner[:]) }

func orderKey(mint, owner [20]byte, side securewrap.Side) []byte {
	return recordKey(orderPrefix, mint[:], owner[:], []byte{byte(side)})
}

// RLP has no signed integers; timestamps and delays are stored as their
// two's-complement bit pattern.

type storedGlobal struct {
	Authority          [20]byte
	UnwrapDelaySeconds uint64
	UnwrapAllowed      bool
	OrdersAllowed      bool
	WrapOrdersAllowed  bool
}

type storedUserState struct {
	Mint                  [20]byte
	Owner                 [20]byte
	WrappedAccount        [20]byte
	ThawEligibleTimestamp uint64
	ThawedAtTimestamp     uint64
	PermanentlyFrozen     bool
	DistributeFrozenFunds uint64
}

type storedPendingUnwrap struct {
	Mint             [20]byte
	Owner            [20]byte
	WrappedAccount   [20]byte
	OriginalAccount  [20]byte
	ReleaseTimestamp uint64
	Amount           uint64
}

func (tx *Tx) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.Put(key, encoded)
}

func (tx *Tx) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := tx.Get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode: %w", err)
	}
	return true, nil
}

// GlobalGet loads the singleton configuration.
func (tx *Tx) GlobalGet() (*securewrap.GlobalState, bool, error) {
	var stored storedGlobal
	ok, err := tx.getRLP(globalKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &securewrap.GlobalState{
		Authority:          stored.Authority,
		UnwrapDelaySeconds: int64(stored.UnwrapDelaySeconds),
		UnwrapAllowed:      stored.UnwrapAllowed,
		OrdersAllowed:      stored.OrdersAllowed,
		WrapOrdersAllowed:  stored.WrapOrdersAllowed,
	}, true, nil
}

// GlobalPut stores the singleton configuration.
func (tx *Tx) GlobalPut(g *securewrap.GlobalState) error {
	if g == nil {
		return fmt.Errorf("state: nil global state")
	}
	return tx.putRLP(globalKey, &storedGlobal{
		Authority:          g.Authority,
		UnwrapDelaySeconds: uint64(g.UnwrapDelaySeconds),
		UnwrapAllowed:      g.UnwrapAllowed,
		OrdersAllowed:      g.OrdersAllowed,
		WrapOrdersAllowed:  g.WrapOrdersAllowed,
	})
}

// MintPairGet loads the pair keyed by its wrapped mint.
func (tx *Tx) MintPairGet(wrapped [20]byte) (*securewrap.MintPair, bool, error) {
	pair := new(securewrap.MintPair)
	ok, err := tx.getRLP(pairKey(wrapped), pair)
	if err != nil || !ok {
		return nil, false, err
	}
	return pair, true, nil
}

// MintPairPut stores a pair and records it in the pair index.
func (tx *Tx) MintPairPut(p *securewrap.MintPair) error {
	if p == nil {
		return fmt.Errorf("state: nil mint pair")
	}
	if err := tx.putRLP(pairKey(p.WrappedMint), p); err != nil {
		return err
	}
	return tx.appendPairIndex(p.WrappedMint)
}

func (tx *Tx) appendPairIndex(wrapped [20]byte) error {
	list, err := tx.MintPairs()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing[:], wrapped[:]) {
			return nil
		}
	}
	list = append(list, wrapped)
	return tx.putRLP(pairIndexKey, list)
}

// MintPairs lists the wrapped mints of every registered pair in creation
// order.
func (tx *Tx) MintPairs() ([][20]byte, error) {
	var list [][20]byte
	if _, err := tx.getRLP(pairIndexKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UserTokenStateGet loads the freeze record of owner.
func (tx *Tx) UserTokenStateGet(mint, owner [20]byte) (*securewrap.UserTokenState, bool, error) {
	var stored storedUserState
	ok, err := tx.getRLP(userStateKey(mint, owner), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &securewrap.UserTokenState{
		Mint:                  stored.Mint,
		Owner:                 stored.Owner,
		WrappedAccount:        stored.WrappedAccount,
		ThawEligibleTimestamp: int64(stored.ThawEligibleTimestamp),
		ThawedAtTimestamp:     int64(stored.ThawedAtTimestamp),
		PermanentlyFrozen:     stored.PermanentlyFrozen,
		DistributeFrozenFunds: stored.DistributeFrozenFunds,
	}, true, nil
}

// UserTokenStatePut stores a freeze record.
func (tx *Tx) UserTokenStatePut(u *securewrap.UserTokenState) error {
	if u == nil {
		return fmt.Errorf("state: nil user token state")
	}
	return tx.putRLP(userStateKey(u.Mint, u.Owner), &storedUserState{
		Mint:                  u.Mint,
		Owner:                 u.Owner,
		WrappedAccount:        u.WrappedAccount,
		ThawEligibleTimestamp: uint64(u.ThawEligibleTimestamp),
		ThawedAtTimestamp:     uint64(u.ThawedAtTimestamp),
		PermanentlyFrozen:     u.PermanentlyFrozen,
		DistributeFrozenFunds: u.DistributeFrozenFunds,
	})
}

// PendingUnwrapGet loads the queued unwrap of owner.
func (tx *Tx) PendingUnwrapGet(mint, owner [20]byte) (*securewrap.PendingUnwrap, bool, error) {
	var stored storedPendingUnwrap
	ok, err := tx.getRLP(unwrapKey(mint, owner), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &securewrap.PendingUnwrap{
		Mint:             stored.Mint,
		Owner:            stored.Owner,
		WrappedAccount:   stored.WrappedAccount,
		OriginalAccount:  stored.OriginalAccount,
		ReleaseTimestamp: int64(stored.ReleaseTimestamp),
		Amount:           stored.Amount,
	}, true, nil
}

// PendingUnwrapPut stores a queued unwrap.
func (tx *Tx) PendingUnwrapPut(p *securewrap.PendingUnwrap) error {
	if p == nil {
		return fmt.Errorf("state: nil pending unwrap")
	}
	return tx.putRLP(unwrapKey(p.Mint, p.Owner), &storedPendingUnwrap{
		Mint:             p.Mint,
		Owner:            p.Owner,
		WrappedAccount:   p.WrappedAccount,
		OriginalAccount:  p.OriginalAccount,
		ReleaseTimestamp: uint64(p.ReleaseTimestamp),
		Amount:           p.Amount,
	})
}

// PendingUnwrapDelete removes a queued unwrap.
func (tx *Tx) PendingUnwrapDelete(mint, owner [20]byte) error {
	return tx.Delete(unwrapKey(mint, owner))
}

// OrderGet loads the order of owner on side.
func (tx *Tx) OrderGet(mint, owner [20]byte, side securewrap.Side) (*securewrap.Order, bool, error) {
	order := new(securewrap.Order)
	ok, err := tx.getRLP(orderKey(mint, owner, side), order)
	if err != nil || !ok {
		return nil, false, err
	}
	return order, true, nil
}

// OrderPut stores an order.
func (tx *Tx) OrderPut(o *securewrap.Order) error {
	if o == nil {
		return fmt.Errorf("state: nil order")
	}
	return tx.putRLP(orderKey(o.Mint, o.Owner, o.Side), o)
}

// OrderDelete removes an order.
func (tx *Tx) OrderDelete(mint, owner [20]byte, side securewrap.Side) error {
	return tx.Delete(orderKey(mint, owner, side))
}

// SequenceGet returns the number of operations executed so far.
func (tx *Tx) SequenceGet() (uint64, error) {
	var seq uint64
	if _, err := tx.getRLP(sequenceKey, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// SequencePut records the last executed operation number.
func (tx *Tx) SequencePut(seq uint64) error {
	return tx.putRLP(sequenceKey, seq)
}
