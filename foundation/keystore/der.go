package keystore

import (
	"crypto/ecdsa"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrKeyEncoding is returned when a stored key is not a secp256k1 key in
// the expected DER structure.
var ErrKeyEncoding = errors.New("invalid key encoding")

var (
	oidPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidSecp256k1      = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	NamedCurve asn1.ObjectIdentifier
}

// privateKeyInfo is the PKCS#8 envelope.
type privateKeyInfo struct {
	Version    int
	Algorithm  algorithmIdentifier
	PrivateKey []byte
}

// ecPrivateKey is the RFC 5915 structure carried inside the envelope.
type ecPrivateKey struct {
	Version    int
	PrivateKey []byte
	NamedCurve asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey  asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

// subjectPublicKeyInfo is the X.509 public key structure.
type subjectPublicKeyInfo struct {
	Algorithm algorithmIdentifier
	PublicKey asn1.BitString
}

var secp256k1Algorithm = algorithmIdentifier{
	Algorithm:  oidPublicKeyECDSA,
	NamedCurve: oidSecp256k1,
}

// =============================================================================

// MarshalPrivateKey encodes the key as PKCS#8 DER.
func MarshalPrivateKey(privateKey *ecdsa.PrivateKey) ([]byte, error) {
	point := crypto.FromECDSAPub(&privateKey.PublicKey)

	inner, err := asn1.Marshal(ecPrivateKey{
		Version:    1,
		PrivateKey: crypto.FromECDSA(privateKey),
		PublicKey:  asn1.BitString{Bytes: point, BitLength: 8 * len(point)},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ec private key: %w", err)
	}

	return asn1.Marshal(privateKeyInfo{
		Algorithm:  secp256k1Algorithm,
		PrivateKey: inner,
	})
}

// ParsePrivateKey decodes a PKCS#8 DER secp256k1 key.
func ParsePrivateKey(der []byte) (*ecdsa.PrivateKey, error) {
	var info privateKeyInfo
	if err := unmarshal(der, &info); err != nil {
		return nil, err
	}

	if err := info.Algorithm.check(); err != nil {
		return nil, err
	}

	var inner ecPrivateKey
	if err := unmarshal(info.PrivateKey, &inner); err != nil {
		return nil, err
	}

	if inner.NamedCurve != nil && !inner.NamedCurve.Equal(oidSecp256k1) {
		return nil, fmt.Errorf("%w: curve %s", ErrKeyEncoding, inner.NamedCurve)
	}

	return crypto.ToECDSA(inner.PrivateKey)
}

// MarshalPublicKey encodes the key as an X.509 SubjectPublicKeyInfo.
func MarshalPublicKey(publicKey *ecdsa.PublicKey) ([]byte, error) {
	point := crypto.FromECDSAPub(publicKey)

	return asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: secp256k1Algorithm,
		PublicKey: asn1.BitString{Bytes: point, BitLength: 8 * len(point)},
	})
}

// ParsePublicKey decodes an X.509 SubjectPublicKeyInfo secp256k1 key.
func ParsePublicKey(der []byte) (*ecdsa.PublicKey, error) {
	var info subjectPublicKeyInfo
	if err := unmarshal(der, &info); err != nil {
		return nil, err
	}

	if err := info.Algorithm.check(); err != nil {
		return nil, err
	}

	return crypto.UnmarshalPubkey(info.PublicKey.RightAlign())
}

// =============================================================================

func (a algorithmIdentifier) check() error {
	switch {
	case !a.Algorithm.Equal(oidPublicKeyECDSA):
		return fmt.Errorf("%w: algorithm %s", ErrKeyEncoding, a.Algorithm)
	case !a.NamedCurve.Equal(oidSecp256k1):
		return fmt.Errorf("%w: curve %s", ErrKeyEncoding, a.NamedCurve)
	}

	return nil
}

func unmarshal(der []byte, v any) error {
	rest, err := asn1.Unmarshal(der, v)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrKeyEncoding, err)
	case len(rest) != 0:
		return fmt.Errorf("%w: trailing data", ErrKeyEncoding)
	}

	return nil
}
