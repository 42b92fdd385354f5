package ports

import "go.trai.ch/sling/internal/core/domain"

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration file from the given working directory,
	// applies overrides and mode defaults, and returns it validated.
	Load(cwd string, overrides domain.Overrides) (*domain.Config, error)

	// DiscoverRoot walks up from cwd to find the project root.
	// Returns the directory containing sling.yaml.
	DiscoverRoot(cwd string) (string, error)
}
