// Package signature provides the hashing, signing and address functions
// required by the blockchain.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when a produced signature can't be
// verified against the signing key.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// Hash256 returns the SHA-256 digest of the data.
func Hash256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Hash256Hex returns the SHA-256 digest of the string as lowercase hex.
func Hash256Hex(s string) string {
	hash := Hash256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// Sign signs the 32 byte message hash with the private key. The signature
// is returned in the 65 byte [R || S || V] format.
func Sign(messageHash []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if len(messageHash) != 32 {
		return nil, fmt.Errorf("message hash must be 32 bytes, got %d", len(messageHash))
	}

	sig, err := crypto.Sign(messageHash, privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the hash and signature.
	publicKey, err := crypto.SigToPub(messageHash, sig)
	if err != nil {
		return nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), messageHash, rs) {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}

// Verify reports whether the signature over the message hash was produced
// by the private key matching the hex encoded public key.
func Verify(messageHash []byte, sig []byte, publicKeyHex string) bool {
	if len(sig) < crypto.RecoveryIDOffset {
		return false
	}

	publicKey, err := hexutil.Decode(publicKeyHex)
	if err != nil {
		return false
	}

	return crypto.VerifySignature(publicKey, messageHash, sig[:crypto.RecoveryIDOffset])
}

// PublicKeyHex returns the uncompressed public key as a 0x prefixed hex string.
func PublicKeyHex(publicKey ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&publicKey))
}

// PublicKeyFromHex parses a public key produced by PublicKeyHex.
func PublicKeyFromHex(publicKeyHex string) (*ecdsa.PublicKey, error) {
	data, err := hexutil.Decode(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	return crypto.UnmarshalPubkey(data)
}
