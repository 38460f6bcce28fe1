// Package configs provides the embedded default configuration template.
//
// The template is embedded at build time with //go:embed so it ships in
// every distribution. `coreason-search config init` (and the docs) use it
// as the starting point for a local search_config.yaml; the config loader
// itself never reads it, defaults live in internal/config.
package configs

import _ "embed"

// DefaultConfigTemplate is the annotated default search_config.yaml.
//
//go:embed search_config.yaml
var DefaultConfigTemplate string
