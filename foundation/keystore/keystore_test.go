package keystore_test

import (
	"bytes"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/HamaKinger/blockchain/foundation/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func Test_KeyStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet", "keys.json")

	ks, err := keystore.Open(path)
	if err != nil {
		t.Fatalf("Should be able to open a missing keystore: %s", err)
	}

	if len(ks.Addresses()) != 0 {
		t.Fatalf("Should start with no addresses.")
	}

	addr, err := ks.Generate()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	reopened, err := keystore.Open(path)
	if err != nil {
		t.Fatalf("Should be able to reopen the keystore: %s", err)
	}

	key, err := reopened.Lookup(addr)
	if err != nil {
		t.Fatalf("Should find the generated key: %s", err)
	}

	if signature.PublicKeyToAddress(key.PublicKey) != addr {
		t.Fatalf("Should get back the key controlling the address.")
	}

	if _, err := reopened.Lookup("unknown"); !errors.Is(err, keystore.ErrNotFound) {
		t.Fatalf("Should get not found for an unknown address: %v", err)
	}
}

func Test_ImportFolder(t *testing.T) {
	dir := t.TempDir()

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	if err := crypto.SaveECDSA(filepath.Join(dir, "miner.ecdsa"), pk); err != nil {
		t.Fatalf("Should be able to save the key file: %s", err)
	}

	ks, _ := keystore.Open("")

	n, err := ks.ImportFolder(dir)
	if err != nil || n != 1 {
		t.Fatalf("Should import the key file: %v: %d", err, n)
	}

	addrs := ks.Addresses()
	if len(addrs) != 1 || addrs[0] != signature.PublicKeyToAddress(pk.PublicKey) {
		t.Fatalf("Should store the imported key under its address: %v", addrs)
	}
}

func Test_KeyEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	ks, _ := keystore.Open(path)
	addr, err := ks.Import(pk)
	if err != nil {
		t.Fatalf("Should be able to import the key: %s", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Should be able to read the wallet file: %s", err)
	}

	var records map[string]keystore.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("Should be able to decode the wallet file: %s", err)
	}
	rec := records[addr]

	if rec.Algorithm != "ECDSA" || rec.KeySize != 256 || rec.CurveName != "secp256k1" {
		t.Fatalf("Should describe the key: %+v", rec)
	}

	privateDER, err := base64.StdEncoding.DecodeString(rec.PrivateKey)
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}

	var info struct {
		Version   int
		Algorithm struct {
			Algorithm  asn1.ObjectIdentifier
			NamedCurve asn1.ObjectIdentifier
		}
		PrivateKey []byte
	}
	if _, err := asn1.Unmarshal(privateDER, &info); err != nil {
		t.Fatalf("Should store a PKCS#8 structure: %s", err)
	}

	ecPublicKey := asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	secp256k1 := asn1.ObjectIdentifier{1, 3, 132, 0, 10}
	if info.Version != 0 || !info.Algorithm.Algorithm.Equal(ecPublicKey) || !info.Algorithm.NamedCurve.Equal(secp256k1) {
		t.Fatalf("Should name an EC key on secp256k1: %v %v", info.Algorithm.Algorithm, info.Algorithm.NamedCurve)
	}

	publicDER, err := base64.StdEncoding.DecodeString(rec.PublicKey)
	if err != nil {
		t.Fatalf("Should be able to decode the public key: %s", err)
	}

	pub, err := keystore.ParsePublicKey(publicDER)
	if err != nil {
		t.Fatalf("Should store an X.509 public key: %s", err)
	}

	if signature.PublicKeyToAddress(*pub) != addr {
		t.Fatalf("Should store the public key controlling the address.")
	}

	reopened, _ := keystore.Open(path)
	key, err := reopened.Lookup(addr)
	if err != nil || key.D.Cmp(pk.D) != 0 {
		t.Fatalf("Should get back the imported key: %v", err)
	}

	bad := make([]byte, len(privateDER))
	copy(bad, privateDER)
	curve, _ := asn1.Marshal(secp256k1)
	i := bytes.Index(bad, curve)
	bad[i+len(curve)-1] = 34 // secp384r1
	if _, err := keystore.ParsePrivateKey(bad); !errors.Is(err, keystore.ErrKeyEncoding) {
		t.Fatalf("Should reject a key on another curve: %v", err)
	}
}

func Test_LegacyRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}
	addr := signature.PublicKeyToAddress(pk.PublicKey)

	records := map[string]keystore.Record{
		addr: {
			PrivateKey: base64.StdEncoding.EncodeToString(crypto.FromECDSA(pk)),
			PublicKey:  base64.StdEncoding.EncodeToString(crypto.FromECDSAPub(&pk.PublicKey)),
			Algorithm:  "ECDSA",
			KeySize:    256,
			CurveName:  "secp256k1",
		},
	}
	data, _ := json.Marshal(records)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Should be able to write the wallet file: %s", err)
	}

	ks, err := keystore.Open(path)
	if err != nil {
		t.Fatalf("Should be able to open the wallet file: %s", err)
	}

	key, err := ks.Lookup(addr)
	if err != nil || key.D.Cmp(pk.D) != 0 {
		t.Fatalf("Should read a bare scalar record: %v", err)
	}
}
