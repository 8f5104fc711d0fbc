//go:build ignore

// Package main generates a synthetic lexicon for load testing.
// Usage: go run scripts/generate-lexicon.go -entries 50000 -output testdata/big.yaml
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	numEntries = flag.Int("entries", 10000, "Number of entries to generate")
	output     = flag.String("output", "testdata/lexicon.yaml", "Output file")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	syllables  = []string{"ka", "lo", "mi", "ne", "ru", "sa", "ti", "vo", "ha", "ou", "se", "dwe", "lin", "gra", "pho"}
	categories = []string{"noun", "verb", "adjective", "adverb", "particle"}
	senseWords = []string{"a", "the", "of", "place", "people", "move", "small", "large", "water", "house", "stone", "bright", "slowly"}
	systems    = []string{"en", "fr", "es"}
)

type entry struct {
	ID       int64             `yaml:"id"`
	Headword map[string]string `yaml:"headword"`
	Gloss    map[string]string `yaml:"gloss,omitempty"`
	Citation string            `yaml:"citation,omitempty"`
	Category string            `yaml:"category,omitempty"`
	Senses   []string          `yaml:"senses,omitempty"`
}

type lexicon struct {
	WritingSystems []string `yaml:"writing_systems"`
	Entries        []entry  `yaml:"entries"`
}

func word(r *rand.Rand, n int) string {
	var sb strings.Builder
	for range n {
		sb.WriteString(syllables[r.Intn(len(syllables))])
	}
	return sb.String()
}

func phrase(r *rand.Rand, words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = senseWords[r.Intn(len(senseWords))]
	}
	return strings.Join(parts, " ")
}

func main() {
	flag.Parse()
	r := rand.New(rand.NewSource(*seed))

	lex := lexicon{WritingSystems: systems, Entries: make([]entry, 0, *numEntries)}
	for i := range *numEntries {
		e := entry{
			ID:       int64(i + 1),
			Headword: map[string]string{"en": word(r, 1+r.Intn(3))},
			Category: categories[r.Intn(len(categories))],
		}
		if r.Intn(4) > 0 {
			e.Gloss = make(map[string]string)
			for _, ws := range systems[:1+r.Intn(len(systems))] {
				e.Gloss[ws] = word(r, 2)
			}
		}
		if r.Intn(3) == 0 {
			e.Citation = word(r, 2)
		}
		for range r.Intn(3) {
			e.Senses = append(e.Senses, phrase(r, 2+r.Intn(5)))
		}
		lex.Entries = append(lex.Entries, e)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}
	data, err := yaml.Marshal(&lex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding lexicon: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d entries in %s\n", len(lex.Entries), *output)
}
