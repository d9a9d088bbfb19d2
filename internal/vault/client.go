package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
	"github.com/mr-tron/base58"
)

// WalletKey holds the trading wallet credentials stored in Vault
type WalletKey struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"` // base58-encoded ed25519 keypair
}

// Config holds the Vault connection settings
type Config struct {
	Enabled    bool
	Address    string
	Token      string
	MountPath  string
	SecretPath string
}

// Client wraps the HashiCorp Vault client for wallet key access. With Vault
// disabled the key is held in memory only, for dry-run and local development.
type Client struct {
	client *api.Client
	config Config
	mu     sync.RWMutex
	cached *WalletKey
}

// NewClient creates a new Vault client
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// StoreWalletKey writes the wallet key to Vault
func (c *Client) StoreWalletKey(ctx context.Context, key WalletKey) error {
	if err := validateWalletKey(key); err != nil {
		return err
	}

	if !c.config.Enabled {
		c.mu.Lock()
		c.cached = &key
		c.mu.Unlock()
		return nil
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"public_key":  key.PublicKey,
			"private_key": key.PrivateKey,
		},
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(), secretData); err != nil {
		return fmt.Errorf("failed to store wallet key in vault: %w", err)
	}

	c.mu.Lock()
	c.cached = &key
	c.mu.Unlock()
	return nil
}

// GetWalletKey retrieves the wallet key, from cache when possible
func (c *Client) GetWalletKey(ctx context.Context) (*WalletKey, error) {
	c.mu.RLock()
	if c.cached != nil {
		cached := *c.cached
		c.mu.RUnlock()
		return &cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("wallet key not found and vault is disabled")
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("wallet key not found")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	key := &WalletKey{
		PublicKey:  getString(data, "public_key"),
		PrivateKey: getString(data, "private_key"),
	}
	if err := validateWalletKey(*key); err != nil {
		return nil, fmt.Errorf("stored wallet key is invalid: %w", err)
	}

	c.mu.Lock()
	c.cached = key
	c.mu.Unlock()
	return key, nil
}

// ClearCache drops the in-memory copy of the key
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (c *Client) secretPath() string {
	return fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
}

// validateWalletKey checks that both halves decode as base58 and that the
// keypair has the expected ed25519 length (64 bytes secret, 32 byte public)
func validateWalletKey(key WalletKey) error {
	pub, err := base58.Decode(key.PublicKey)
	if err != nil {
		return fmt.Errorf("public key is not valid base58: %w", err)
	}
	if len(pub) != 32 {
		return fmt.Errorf("public key must decode to 32 bytes, got %d", len(pub))
	}

	priv, err := base58.Decode(key.PrivateKey)
	if err != nil {
		return fmt.Errorf("private key is not valid base58: %w", err)
	}
	if len(priv) != 64 {
		return fmt.Errorf("private key must decode to 64 bytes, got %d", len(priv))
	}
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// NewMockClient creates a disabled client for testing
func NewMockClient() *Client {
	return &Client{config: Config{Enabled: false}}
}
