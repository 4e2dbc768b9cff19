package ledger

import (
	"errors"
	"fmt"
	"math/bits"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrMintExists          = errors.New("ledger: mint already exists")
	ErrMintNotFound        = errors.New("ledger: mint not found")
	ErrUnauthorized        = errors.New("ledger: authority mismatch")
	ErrAccountFrozen       = errors.New("ledger: account is frozen")
	ErrInvalidAccountState = errors.New("ledger: invalid account state")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrOverflow            = errors.New("ledger: amount overflow")
)

var (
	mintPrefix    = []byte("ledger/mint/")
	accountPrefix = []byte("ledger/account/")
)

// KV is the keyed store the ledger persists into. Get returns a nil slice
// when the key is absent.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Ledger implements mint, burn, transfer, freeze and thaw over token accounts.
// Every method either applies fully or leaves the store untouched.
type Ledger struct {
	kv KV
}

// New returns a ledger bound to kv.
func New(kv KV) *Ledger {
	return &Ledger{kv: kv}
}

func mintKey(id [20]byte) []byte {
	buf := append(append([]byte{}, mintPrefix...), id[:]...)
	return ethcrypto.Keccak256(buf)
}

func accountKey(mint, owner [20]byte) []byte {
	buf := make([]byte, 0, len(accountPrefix)+40)
	buf = append(buf, accountPrefix...)
	buf = append(buf, mint[:]...)
	buf = append(buf, owner[:]...)
	return ethcrypto.Keccak256(buf)
}

func (l *Ledger) ready() error {
	if l == nil || l.kv == nil {
		return errors.New("ledger: store not configured")
	}
	return nil
}

// CreateMint registers a new mint with zero supply.
func (l *Ledger) CreateMint(m *Mint) error {
	if err := l.ready(); err != nil {
		return err
	}
	if m == nil {
		return errors.New("ledger: nil mint")
	}
	if _, err := l.Mint(m.ID); err == nil {
		return ErrMintExists
	} else if !errors.Is(err, ErrMintNotFound) {
		return err
	}
	stored := m.Clone()
	stored.Supply = 0
	return l.putMint(stored)
}

// Mint loads a mint by identity.
func (l *Ledger) Mint(id [20]byte) (*Mint, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	data, err := l.kv.Get(mintKey(id))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrMintNotFound
	}
	m := new(Mint)
	if err := rlp.DecodeBytes(data, m); err != nil {
		return nil, fmt.Errorf("ledger: decode mint: %w", err)
	}
	return m, nil
}

func (l *Ledger) putMint(m *Mint) error {
	encoded, err := rlp.EncodeToBytes(m)
	if err != nil {
		return err
	}
	return l.kv.Put(mintKey(m.ID), encoded)
}

// Account loads the token account of owner for mint. Accounts that were never
// credited are returned with a zero balance.
func (l *Ledger) Account(mint, owner [20]byte) (*Account, error) {
	if _, err := l.Mint(mint); err != nil {
		return nil, err
	}
	data, err := l.kv.Get(accountKey(mint, owner))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &Account{Mint: mint, Owner: owner}, nil
	}
	acc := new(Account)
	if err := rlp.DecodeBytes(data, acc); err != nil {
		return nil, fmt.Errorf("ledger: decode account: %w", err)
	}
	return acc, nil
}

func (l *Ledger) putAccount(acc *Account) error {
	encoded, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	return l.kv.Put(accountKey(acc.Mint, acc.Owner), encoded)
}

// Transfer moves amount of mint from one owner to another. authority must be
// the source owner.
func (l *Ledger) Transfer(mint, from, to, authority [20]byte, amount uint64) error {
	if authority != from {
		return ErrUnauthorized
	}
	src, err := l.Account(mint, from)
	if err != nil {
		return err
	}
	dst, err := l.Account(mint, to)
	if err != nil {
		return err
	}
	if src.Frozen || dst.Frozen {
		return ErrAccountFrozen
	}
	if src.Balance < amount {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	credited, carry := bits.Add64(dst.Balance, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	src.Balance -= amount
	dst.Balance = credited
	if err := l.putAccount(src); err != nil {
		return err
	}
	return l.putAccount(dst)
}

// MintTo creates amount new units in the account of to.
func (l *Ledger) MintTo(mint, to, authority [20]byte, amount uint64) error {
	m, err := l.Mint(mint)
	if err != nil {
		return err
	}
	if m.MintAuthority != authority {
		return ErrUnauthorized
	}
	dst, err := l.Account(mint, to)
	if err != nil {
		return err
	}
	if dst.Frozen {
		return ErrAccountFrozen
	}
	supply, carry := bits.Add64(m.Supply, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	balance, carry := bits.Add64(dst.Balance, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	m.Supply = supply
	dst.Balance = balance
	if err := l.putMint(m); err != nil {
		return err
	}
	return l.putAccount(dst)
}

// Burn destroys amount units held by from. authority must own the account.
func (l *Ledger) Burn(mint, from, authority [20]byte, amount uint64) error {
	if authority != from {
		return ErrUnauthorized
	}
	m, err := l.Mint(mint)
	if err != nil {
		return err
	}
	src, err := l.Account(mint, from)
	if err != nil {
		return err
	}
	if src.Frozen {
		return ErrAccountFrozen
	}
	if src.Balance < amount {
		return ErrInsufficientBalance
	}
	if m.Supply < amount {
		return ErrInsufficientBalance
	}
	src.Balance -= amount
	m.Supply -= amount
	if err := l.putMint(m); err != nil {
		return err
	}
	return l.putAccount(src)
}

// Freeze blocks all balance movement on the account of owner.
func (l *Ledger) Freeze(mint, owner, authority [20]byte) error {
	return l.setFrozen(mint, owner, authority, true)
}

// Thaw lifts a freeze placed by Freeze.
func (l *Ledger) Thaw(mint, owner, authority [20]byte) error {
	return l.setFrozen(mint, owner, authority, false)
}

func (l *Ledger) setFrozen(mint, owner, authority [20]byte, frozen bool) error {
	m, err := l.Mint(mint)
	if err != nil {
		return err
	}
	if m.FreezeAuthority == ([20]byte{}) || m.FreezeAuthority != authority {
		return ErrUnauthorized
	}
	acc, err := l.Account(mint, owner)
	if err != nil {
		return err
	}
	if acc.Frozen == frozen {
		return ErrInvalidAccountState
	}
	acc.Frozen = frozen
	return l.putAccount(acc)
}
