// Package enrich derives a company profile from search results.
//
// Defines a Provider interface with an OpenAI implementation and a noop
// fallback. The interface lets the agent run with or without an LLM key;
// the choice is made once at construction, never at call time.
package enrich

import (
	"context"
)

// Profile is the structured company summary produced by a provider.
type Profile struct {
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	Summary     string `json:"summary"`
}

// Provider derives a company profile from a query and source snippets.
type Provider interface {
	// Enrich returns a profile for the researched company.
	Enrich(ctx context.Context, query string, snippets []string) (Profile, error)

	// Enabled reports whether this provider performs real enrichment.
	// The agent records a skipped step when enrichment is disabled.
	Enabled() bool
}

// NoopProvider is used when no LLM is configured. The company name falls
// back to the query and the remaining fields stay empty.
type NoopProvider struct{}

// NewNoopProvider creates a provider that performs no enrichment.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Enabled reports false: the noop provider never enriches.
func (p *NoopProvider) Enabled() bool { return false }

// Enrich returns a profile containing only the query as company name.
func (p *NoopProvider) Enrich(_ context.Context, query string, _ []string) (Profile, error) {
	return Profile{CompanyName: query}, nil
}
