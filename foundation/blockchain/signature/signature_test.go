package signature_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

func Test_Hash256Hex(t *testing.T) {
	const exp = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	h := signature.Hash256Hex("abc")
	if h != exp {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the right hash.")
	}

	if h2 := signature.Hash256Hex("abc"); h2 != h {
		t.Fatalf("Should get back the same hash twice.")
	}
}

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	txHash := signature.Hash256Hex("transaction")
	msg := signature.Hash256([]byte(txHash))

	sig, err := signature.Sign(msg[:], pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	pubHex := signature.PublicKeyHex(pk.PublicKey)
	if !signature.Verify(msg[:], sig, pubHex) {
		t.Fatalf("Should be able to verify the signature.")
	}

	other := signature.Hash256([]byte("other"))
	if signature.Verify(other[:], sig, pubHex) {
		t.Fatalf("Should not verify the signature against different data.")
	}

	pk2, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	if signature.Verify(msg[:], sig, signature.PublicKeyHex(pk2.PublicKey)) {
		t.Fatalf("Should not verify the signature against a different key.")
	}

	if signature.Verify(msg[:], sig, "not-hex") {
		t.Fatalf("Should not verify the signature against a malformed key.")
	}

	if _, err := signature.Sign([]byte("short"), pk); err == nil {
		t.Fatalf("Should not be able to sign data that isn't a 32 byte hash.")
	}
}

func Test_Address(t *testing.T) {
	t.Log("Given the need to encode and decode addresses.")
	{
		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a private key: %s", failed, err)
		}

		addr := signature.PublicKeyToAddress(pk.PublicKey)
		t.Logf("\t%s\tShould be able to derive an address: %s", success, addr)

		pkh, err := signature.DecodeAddress(addr)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to decode the address: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to decode the address.", success)

		exp := signature.AddressHash(crypto.FromECDSAPub(&pk.PublicKey))
		if !bytes.Equal(pkh, exp) {
			t.Fatalf("\t%s\tShould get back the public key hash.", failed)
		}
		t.Logf("\t%s\tShould get back the public key hash.", success)

		addr2, err := signature.PublicKeyHexToAddress(signature.PublicKeyHex(pk.PublicKey))
		if err != nil || addr2 != addr {
			t.Fatalf("\t%s\tShould derive the same address from the hex key: %v", failed, err)
		}
		t.Logf("\t%s\tShould derive the same address from the hex key.", success)

		// Change the last character to break the checksum.
		last := addr[len(addr)-1]
		swap := byte('2')
		if last == swap {
			swap = '3'
		}
		bad := addr[:len(addr)-1] + string(swap)

		if _, err := signature.DecodeAddress(bad); !errors.Is(err, signature.ErrInvalidAddress) {
			t.Fatalf("\t%s\tShould reject an address with a bad checksum: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an address with a bad checksum.", success)

		short := signature.EncodeAddress([]byte{1, 2, 3})
		if _, err := signature.DecodeAddress(short); !errors.Is(err, signature.ErrInvalidAddress) {
			t.Fatalf("\t%s\tShould reject an address with a bad length: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an address with a bad length.", success)

		script, err := signature.LockScript(addr)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build a lock script: %s", failed, err)
		}

		if !strings.HasPrefix(script, "OP_DUP OP_HASH160 ") || !strings.HasSuffix(script, " OP_EQUALVERIFY OP_CHECKSIG") {
			t.Fatalf("\t%s\tShould build a P2PKH lock script: %s", failed, script)
		}
		t.Logf("\t%s\tShould build a P2PKH lock script.", success)
	}
}
