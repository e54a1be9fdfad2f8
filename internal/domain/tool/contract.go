// Package tool holds the closed set of executable capabilities: each contract
// pairs a declarative argument schema with the handler that performs the side
// effect. The registry is populated at startup and sealed before the service
// accepts traffic, so a model response can never introduce a new capability.
package tool

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrUnknownTool means the requested name is not in the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrContractAlreadyRegistered means the name is taken.
	ErrContractAlreadyRegistered = errors.New("tool contract already registered")

	// ErrRegistrySealed means Register was called after Seal.
	ErrRegistrySealed = errors.New("tool registry is sealed")

	// ErrInvalidContract means the contract is missing a name or executor.
	ErrInvalidContract = errors.New("invalid tool contract")
)

// Contract is one registry entry: static and immutable once registered.
type Contract struct {
	Name        string
	Description string
	Schema      Schema
	Executor    Executor
}

// Registry maps tool names to contracts. Registration is a startup-only
// operation; Seal closes it for good.
type Registry struct {
	mu        sync.RWMutex
	contracts map[string]Contract
	order     []string
	sealed    bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{contracts: make(map[string]Contract)}
}

// Register adds a contract. Fails on empty name, nil executor, duplicate
// name, or a sealed registry.
func (r *Registry) Register(c Contract) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" || c.Executor == nil {
		return fmt.Errorf("%w: name and executor are required", ErrInvalidContract)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, c.Name)
	}
	if _, exists := r.contracts[c.Name]; exists {
		return fmt.Errorf("%w: %q", ErrContractAlreadyRegistered, c.Name)
	}

	r.contracts[c.Name] = c
	r.order = append(r.order, c.Name)
	return nil
}

// Seal closes the registry. Call once, after all startup registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the contract for name, or ErrUnknownTool.
func (r *Registry) Lookup(name string) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[name]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return c, nil
}

// Contracts returns all contracts in registration order.
func (r *Registry) Contracts() []Contract {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Contract, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.contracts[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// BuildRegistry assembles and seals a registry from the given contracts.
// All registration happens here, before any request is served.
func BuildRegistry(contracts ...Contract) (*Registry, error) {
	r := NewRegistry()
	for _, c := range contracts {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}
