// Package keystore maintains the wallet file mapping addresses to the key
// pairs that control them.
package keystore

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is returned when no key is stored for an address.
var ErrNotFound = errors.New("key not found")

// Record is how a key pair is written to the wallet file.
type Record struct {
	PrivateKey string `json:"privateKey"` // Base64 of the PKCS#8 DER encoding.
	PublicKey  string `json:"publicKey"`  // Base64 of the X.509 SubjectPublicKeyInfo DER encoding.
	Algorithm  string `json:"algorithm"`
	KeySize    int    `json:"keySize"`
	CurveName  string `json:"curveName"`
}

// KeyStore maintains a map of address to key record. A keystore opened
// with an empty path is never written to disk.
type KeyStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]Record
}

// Open loads the wallet file. A missing file yields an empty keystore.
func Open(path string) (*KeyStore, error) {
	ks := KeyStore{
		path:    path,
		records: make(map[string]Record),
	}

	if path == "" {
		return &ks, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &ks, nil
	case err != nil:
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &ks.records); err != nil {
			return nil, fmt.Errorf("decode keystore: %w", err)
		}
	}

	return &ks, nil
}

// Addresses returns the stored addresses in order.
func (ks *KeyStore) Addresses() []string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	addrs := make([]string, 0, len(ks.records))
	for addr := range ks.records {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	return addrs
}

// Lookup returns the private key controlling the address.
func (ks *KeyStore) Lookup(address string) (*ecdsa.PrivateKey, error) {
	ks.mu.RLock()
	rec, exists := ks.records[address]
	ks.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	der, err := base64.StdEncoding.DecodeString(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	// Wallets written before the PKCS#8 encoding hold the bare scalar.
	if len(der) == 32 {
		return crypto.ToECDSA(der)
	}

	return ParsePrivateKey(der)
}

// Generate creates a new key pair, stores it and returns its address.
func (ks *KeyStore) Generate() (string, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}

	return ks.Import(privateKey)
}

// Import stores the key pair and returns its address.
func (ks *KeyStore) Import(privateKey *ecdsa.PrivateKey) (string, error) {
	address := signature.PublicKeyToAddress(privateKey.PublicKey)

	privateDER, err := MarshalPrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	publicDER, err := MarshalPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", err
	}

	rec := Record{
		PrivateKey: base64.StdEncoding.EncodeToString(privateDER),
		PublicKey:  base64.StdEncoding.EncodeToString(publicDER),
		Algorithm:  "ECDSA",
		KeySize:    256,
		CurveName:  "secp256k1",
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.records[address] = rec
	if err := ks.save(); err != nil {
		delete(ks.records, address)
		return "", err
	}

	return address, nil
}

// ImportFolder walks the folder and imports every .ecdsa key file.
func (ks *KeyStore) ImportFolder(root string) (int, error) {
	var imported int

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		if _, err := ks.Import(privateKey); err != nil {
			return err
		}
		imported++

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return imported, fmt.Errorf("walking directory: %w", err)
	}

	return imported, nil
}

// save must be called with the lock held.
func (ks *KeyStore) save() error {
	if ks.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(ks.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ks.records, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ks.path, data, 0600)
}
