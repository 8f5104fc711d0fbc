// Package configs provides the templates written by `lexsearch config init`.
//
// Templates are embedded at build time so they ship with every binary.
//
// Template files:
//   - project-config.example.yaml: per-project settings (.lexsearch.yaml)
//   - lexicon.example.yaml: a small lexicon to try searches against
package configs

import _ "embed"

// ProjectConfigTemplate is the commented .lexsearch.yaml written by
// `lexsearch config init --project`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// SampleLexicon is written by `lexsearch config init --project --sample`
// when the project has no lexicon yet.
//
//go:embed lexicon.example.yaml
var SampleLexicon string
