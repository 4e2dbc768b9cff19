package ledger

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Mint describes a fungible asset tracked by the ledger.
type Mint struct {
	ID              [20]byte
	Decimals        uint8
	Supply          uint64
	MintAuthority   [20]byte
	FreezeAuthority [20]byte
}

// Clone returns a copy of the mint.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Account is the token account of one owner for one mint.
type Account struct {
	Mint    [20]byte
	Owner   [20]byte
	Balance uint64
	Frozen  bool
}

// Clone returns a copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// ID returns the derived token-account identity.
func (a *Account) ID() [20]byte {
	return AccountID(a.Mint, a.Owner)
}

// DeriveAddress hashes a seed and its parts into a 20-byte identity. Derived
// identities have no private key.
func DeriveAddress(seed string, parts ...[20]byte) [20]byte {
	buf := make([]byte, 0, len(seed)+20*len(parts))
	buf = append(buf, seed...)
	for _, part := range parts {
		buf = append(buf, part[:]...)
	}
	digest := ethcrypto.Keccak256(buf)
	var out [20]byte
	copy(out[:], digest[12:])
	return out
}

// AccountID is the identity of the token account held by owner for mint.
func AccountID(mint, owner [20]byte) [20]byte {
	return DeriveAddress("token_account", mint, owner)
}
