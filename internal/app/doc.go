// Package app contains the core application logic. It loads the manifests,
// registers the workspace modules and runs one task across the selected
// modules, decoupled from any specific entrypoint like a CLI or server.
package app
