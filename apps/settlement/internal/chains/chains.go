package chains

import (
	"fmt"
	"os"
	"strings"
)

// Chain represents a supported network with its identifiers
type Chain struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chain_id"`
}

// ChainRegistry holds all supported chains
type ChainRegistry struct {
	byName map[string]*Chain
	byID   map[uint64]*Chain
}

// NewChainRegistry creates a new chain registry with all supported chains
func NewChainRegistry() *ChainRegistry {
	registry := &ChainRegistry{
		byName: make(map[string]*Chain),
		byID:   make(map[uint64]*Chain),
	}

	supportedChains := []*Chain{
		{Name: "sepolia", ChainID: 11155111},
		{Name: "base-sepolia", ChainID: 84532},
		{Name: "arbitrum-sepolia", ChainID: 421614},
	}

	for _, chain := range supportedChains {
		registry.byName[chain.Name] = chain
		registry.byID[chain.ChainID] = chain
	}

	return registry
}

// GetByName returns a chain by its name (case-insensitive)
func (r *ChainRegistry) GetByName(name string) (*Chain, bool) {
	chain, exists := r.byName[strings.ToLower(name)]
	return chain, exists
}

// GetByID returns a chain by its chain id
func (r *ChainRegistry) GetByID(chainID uint64) (*Chain, bool) {
	chain, exists := r.byID[chainID]
	return chain, exists
}

// IsSupported checks if a chain id is supported
func (r *ChainRegistry) IsSupported(chainID uint64) bool {
	_, exists := r.byID[chainID]
	return exists
}

// GetSupportedNames returns all supported chain names
func (r *ChainRegistry) GetSupportedNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// RPCURL resolves the RPC endpoint for a chain from the environment, e.g.
// SEPOLIA_RPC_URL for "sepolia".
func (c *Chain) RPCURL() (string, error) {
	key := envKey(c.Name) + "_RPC_URL"
	url := os.Getenv(key)
	if url == "" {
		return "", fmt.Errorf("no RPC endpoint configured for chain %s: set %s", c.Name, key)
	}
	return url, nil
}

func envKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Global chain registry instance
var GlobalRegistry = NewChainRegistry()
