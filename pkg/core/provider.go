// Package core defines the provider abstraction shared by the dialogue
// pipeline and the model backends.
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/vango-go/frontdesk/pkg/core/types"
)

// Provider is the interface all LLM backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "cerebras", "gemini").
	Name() string

	// Complete sends a non-streaming completion request.
	Complete(ctx context.Context, req *types.CompletionRequest) (*types.CompletionResponse, error)
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	Register(provider Provider)
	Get(name string) (Provider, bool)
	List() []string
}

type defaultRegistry struct {
	providers map[string]Provider
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry() ProviderRegistry {
	return &defaultRegistry{
		providers: make(map[string]Provider),
	}
}

func (r *defaultRegistry) Register(provider Provider) {
	r.providers[provider.Name()] = provider
}

func (r *defaultRegistry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *defaultRegistry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// ParseModelString splits a "provider/model" string into its parts.
// The model part may itself contain slashes.
func ParseModelString(model string) (provider, name string, err error) {
	model = strings.TrimSpace(model)
	idx := strings.Index(model, "/")
	if idx <= 0 || idx == len(model)-1 {
		return "", "", fmt.Errorf("model must be of the form provider/model, got %q", model)
	}
	return model[:idx], model[idx+1:], nil
}
