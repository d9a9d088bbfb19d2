package vault

import (
	"context"
	"testing"

	"github.com/mr-tron/base58"
)

func testKey(t *testing.T) WalletKey {
	t.Helper()
	pub := make([]byte, 32)
	priv := make([]byte, 64)
	for i := range pub {
		pub[i] = byte(i + 1)
	}
	for i := range priv {
		priv[i] = byte(i + 1)
	}
	return WalletKey{
		PublicKey:  base58.Encode(pub),
		PrivateKey: base58.Encode(priv),
	}
}

func TestMockClientStoreAndGet(t *testing.T) {
	c := NewMockClient()
	key := testKey(t)

	if err := c.StoreWalletKey(context.Background(), key); err != nil {
		t.Fatalf("StoreWalletKey() error = %v", err)
	}

	got, err := c.GetWalletKey(context.Background())
	if err != nil {
		t.Fatalf("GetWalletKey() error = %v", err)
	}
	if got.PublicKey != key.PublicKey || got.PrivateKey != key.PrivateKey {
		t.Error("retrieved key does not match stored key")
	}
}

func TestGetWalletKeyMissing(t *testing.T) {
	c := NewMockClient()
	if _, err := c.GetWalletKey(context.Background()); err == nil {
		t.Error("expected error when no key is stored and vault is disabled")
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	c := NewMockClient()
	valid := testKey(t)

	tests := []struct {
		name string
		key  WalletKey
	}{
		{"not base58", WalletKey{PublicKey: "0OIl", PrivateKey: valid.PrivateKey}},
		{"public key too short", WalletKey{PublicKey: base58.Encode([]byte{1, 2, 3}), PrivateKey: valid.PrivateKey}},
		{"private key wrong length", WalletKey{PublicKey: valid.PublicKey, PrivateKey: base58.Encode(make([]byte, 32))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.StoreWalletKey(context.Background(), tt.key); err == nil {
				t.Error("invalid key accepted")
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	c := NewMockClient()
	if err := c.StoreWalletKey(context.Background(), testKey(t)); err != nil {
		t.Fatalf("StoreWalletKey() error = %v", err)
	}
	c.ClearCache()
	if _, err := c.GetWalletKey(context.Background()); err == nil {
		t.Error("expected miss after cache clear with vault disabled")
	}
}
