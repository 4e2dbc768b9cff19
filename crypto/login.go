package crypto

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"
)

const loginDomain = "securewrap-login"

var errBadSignature = errors.New("crypto: invalid login signature")

// LoginDigest is the hash a caller signs to prove control of address at the
// given unix timestamp.
func LoginDigest(address string, timestamp int64) []byte {
	msg := fmt.Sprintf("%s:%s:%s", loginDomain, address, strconv.FormatInt(timestamp, 10))
	return crypto.Keccak256([]byte(msg))
}

// SignLogin produces a 65-byte recoverable signature over LoginDigest.
func SignLogin(key *PrivateKey, timestamp int64) ([]byte, error) {
	if key == nil {
		return nil, errors.New("crypto: nil private key")
	}
	addr := key.PubKey().Address().String()
	return crypto.Sign(LoginDigest(addr, timestamp), key.PrivateKey)
}

// VerifyLogin recovers the signer of a login signature and checks it matches
// the claimed address.
func VerifyLogin(address string, timestamp int64, sig []byte) (Address, error) {
	claimed, err := DecodeAddress(address)
	if err != nil {
		return Address{}, err
	}
	if len(sig) != crypto.SignatureLength {
		return Address{}, errBadSignature
	}
	pub, err := crypto.SigToPub(LoginDigest(address, timestamp), sig)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", errBadSignature, err)
	}
	recovered := (&PublicKey{pub}).Address()
	if recovered.Raw() != claimed.Raw() {
		return Address{}, errBadSignature
	}
	return recovered, nil
}
