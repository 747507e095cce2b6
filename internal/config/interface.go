package config

import "context"

// Loader is the interface for a format-specific manifest loader.
type Loader interface {
	// Load reads every manifest at the given files or directories and
	// translates them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Extensions is implemented by loaders that know which file extensions
// they handle.
type Extensions interface {
	Extensions() []string
}
