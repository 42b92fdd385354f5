package ports

import "go.trai.ch/sling/internal/core/domain"

// Resolver maps import specifiers to module identities.
//
//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks -source=resolver.go
type Resolver interface {
	// Resolve maps specifier, imported from a module in fromDir, to a
	// ModuleID. Failures carry the searched paths as metadata.
	Resolve(specifier, fromDir string) (domain.ModuleID, error)
}

// ResolverFactory builds a Resolver for a loaded project configuration.
type ResolverFactory func(cfg *domain.Config) Resolver
