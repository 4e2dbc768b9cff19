package securewrap

import (
	"math/bits"

	"securewrap/core/ledger"
)

const (
	wrappedMintSeed = "secure_wrap_token_mint"
	custodySeed     = "custody"
)

// DeriveWrappedMint returns the identity of the wrapped mint paired with
// original.
func DeriveWrappedMint(original [20]byte) [20]byte {
	return ledger.DeriveAddress(wrappedMintSeed, original)
}

// CustodyAddress returns the derived owner of the custody token accounts of
// the pair whose wrapped mint is wrapped. It has no private key; only the
// engine acts on its behalf.
func CustodyAddress(wrapped [20]byte) [20]byte {
	return ledger.DeriveAddress(custodySeed, wrapped)
}

// Ledger is the custody ledger the engine settles against.
type Ledger interface {
	CreateMint(m *ledger.Mint) error
	Mint(id [20]byte) (*ledger.Mint, error)
	Account(mint, owner [20]byte) (*ledger.Account, error)
	Transfer(mint, from, to, authority [20]byte, amount uint64) error
	MintTo(mint, to, authority [20]byte, amount uint64) error
	Burn(mint, from, authority [20]byte, amount uint64) error
	Freeze(mint, owner, authority [20]byte) error
	Thaw(mint, owner, authority [20]byte) error
}

// custody is the only holder of the pair's delegated authority. It moves
// funds out of the custody accounts, mints and burns the wrapped asset and
// freezes wrapped accounts, and it keeps the pair counters in step.
type custody struct {
	pair      *MintPair
	ledger    Ledger
	authority [20]byte
}

func newCustody(pair *MintPair, l Ledger) *custody {
	return &custody{pair: pair, ledger: l, authority: CustodyAddress(pair.WrappedMint)}
}

func (c *custody) address() [20]byte { return c.authority }

func (c *custody) sendOriginal(to [20]byte, amount uint64) error {
	return c.ledger.Transfer(c.pair.OriginalMint, c.authority, to, c.authority, amount)
}

func (c *custody) sendWrapped(to [20]byte, amount uint64) error {
	return c.ledger.Transfer(c.pair.WrappedMint, c.authority, to, c.authority, amount)
}

func (c *custody) burnWrapped(amount uint64) error {
	return c.ledger.Burn(c.pair.WrappedMint, c.authority, c.authority, amount)
}

func (c *custody) mintWrapped(to [20]byte, amount uint64) error {
	return c.ledger.MintTo(c.pair.WrappedMint, to, c.authority, amount)
}

func (c *custody) freezeAccount(owner [20]byte) error {
	return c.ledger.Freeze(c.pair.WrappedMint, owner, c.authority)
}

func (c *custody) thawAccount(owner [20]byte) error {
	return c.ledger.Thaw(c.pair.WrappedMint, owner, c.authority)
}

// sendWrappedToFrozenAccount returns escrowed wrapped funds to a permanently
// frozen owner. The account is thawed only for the duration of the transfer
// and the amount joins the permanently frozen supply. Callers run inside one
// transaction, so a failure at any step discards the thaw as well.
func (c *custody) sendWrappedToFrozenAccount(owner [20]byte, amount uint64) error {
	if err := c.thawAccount(owner); err != nil {
		return err
	}
	if err := c.sendWrapped(owner, amount); err != nil {
		return err
	}
	if err := c.freezeAccount(owner); err != nil {
		return err
	}
	return c.addPermanentlyFrozen(amount)
}

func (c *custody) addPermanentlyFrozen(amount uint64) error {
	sum, carry := bits.Add64(c.pair.PermanentlyFrozenTokenSupply, amount, 0)
	if carry != 0 {
		return ErrMathOverflow
	}
	c.pair.PermanentlyFrozenTokenSupply = sum
	return nil
}

func (c *custody) addRedistributed(amount uint64) error {
	sum, carry := bits.Add64(c.pair.RedistributedTokenSupply, amount, 0)
	if carry != 0 {
		return ErrMathOverflow
	}
	c.pair.RedistributedTokenSupply = sum
	return nil
}

func (c *custody) addOrderEscrow(amount uint64) error {
	sum, carry := bits.Add64(c.pair.OrderEscrowedOriginal, amount, 0)
	if carry != 0 {
		return ErrMathOverflow
	}
	c.pair.OrderEscrowedOriginal = sum
	return nil
}

func (c *custody) releaseOrderEscrow(amount uint64) error {
	diff, borrow := bits.Sub64(c.pair.OrderEscrowedOriginal, amount, 0)
	if borrow != 0 {
		return ErrMathOverflow
	}
	c.pair.OrderEscrowedOriginal = diff
	return nil
}
