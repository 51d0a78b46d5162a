package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
)

// AddressVersion is the version byte prefixed to every address.
const AddressVersion byte = 0x00

// ZeroAddress is the sender recorded on coinbase transactions.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ErrInvalidAddress is returned when an address fails to decode.
var ErrInvalidAddress = errors.New("invalid address")

// addressHashLen is the size of the public key hash carried by an address.
const addressHashLen = ripemd160.Size

// =============================================================================

// AddressHash returns RIPEMD-160(SHA-256(data)).
func AddressHash(data []byte) []byte {
	sha := sha256.Sum256(data)

	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// EncodeAddress returns the Base58Check encoding of the public key hash.
func EncodeAddress(pubKeyHash []byte) string {
	return base58.CheckEncode(pubKeyHash, AddressVersion)
}

// DecodeAddress validates the address checksum and returns the public key
// hash it carries.
func DecodeAddress(address string) ([]byte, error) {
	pubKeyHash, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	if version != AddressVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrInvalidAddress, version)
	}

	if len(pubKeyHash) != addressHashLen {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(pubKeyHash)+5)
	}

	return pubKeyHash, nil
}

// PublicKeyToAddress derives the address owned by the public key.
func PublicKeyToAddress(publicKey ecdsa.PublicKey) string {
	return EncodeAddress(AddressHash(crypto.FromECDSAPub(&publicKey)))
}

// PublicKeyHexToAddress derives the address from a hex encoded public key.
func PublicKeyHexToAddress(publicKeyHex string) (string, error) {
	publicKey, err := PublicKeyFromHex(publicKeyHex)
	if err != nil {
		return "", err
	}

	return PublicKeyToAddress(*publicKey), nil
}

// LockScript renders the pay-to-public-key-hash script for the address.
func LockScript(address string) (string, error) {
	pubKeyHash, err := DecodeAddress(address)
	if err != nil {
		return "", err
	}

	pkh := strings.ToUpper(hex.EncodeToString(pubKeyHash))
	return "OP_DUP OP_HASH160 " + pkh + " OP_EQUALVERIFY OP_CHECKSIG", nil
}
