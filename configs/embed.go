// Package configs provides the embedded configuration template.
//
// The template is embedded at build time so `litmatch init` works in any
// distribution, binary releases included. To change it, edit
// litmatch.example.yaml and rebuild.
package configs

import _ "embed"

// ConfigTemplate is the annotated litmatch.yaml template written by
// `litmatch init`. Omitted keys keep built-in defaults
// (internal/config.NewConfig).
//
//go:embed litmatch.example.yaml
var ConfigTemplate string
