// Package lexicon holds the heuristic vocabulary used by the matchers:
// nickname canonicalisation, stopwords, abbreviation expansion, meeting-type
// vocabulary, title prefixes and timezone abbreviations. A Lexicon is
// immutable once built and safe for concurrent use.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the on-disk shape of a lexicon.
type File struct {
	Nicknames             map[string]string   `yaml:"nicknames"`
	Stopwords             []string            `yaml:"stopwords"`
	Abbreviations         map[string]string   `yaml:"abbreviations"`
	MeetingTypes          map[string][]string `yaml:"meetingTypes"`
	TitlePrefixes         []string            `yaml:"titlePrefixes"`
	TitleSuffixes         []string            `yaml:"titleSuffixes"`
	TimezoneAbbreviations map[string]string   `yaml:"timezoneAbbreviations"`
}

// Lexicon is the compiled, read-only form of File.
type Lexicon struct {
	nicknames     map[string]string
	stopwords     map[string]struct{}
	abbreviations map[string]string
	meetingTypes  map[string]string
	prefixes      []string
	suffixes      []string
	zones         map[string]string
}

// DefaultFile returns a fresh copy of the built-in tables.
func DefaultFile() File {
	var f File
	if err := yaml.Unmarshal(defaultYAML, &f); err != nil {
		panic(fmt.Sprintf("lexicon: embedded defaults invalid: %v", err))
	}
	return f
}

// Default returns the built-in lexicon.
func Default() *Lexicon {
	return New(DefaultFile())
}

// Load reads a lexicon file layered over the defaults. An empty path yields
// the defaults.
func Load(path string) (*Lexicon, error) {
	f := DefaultFile()
	if path == "" {
		return New(f), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("lexicon file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	return New(f), nil
}

// New compiles f. Keys are lowercased; nothing in f is retained.
func New(f File) *Lexicon {
	lex := &Lexicon{
		nicknames:     make(map[string]string, len(f.Nicknames)),
		stopwords:     make(map[string]struct{}, len(f.Stopwords)),
		abbreviations: make(map[string]string, len(f.Abbreviations)),
		meetingTypes:  make(map[string]string),
		zones:         make(map[string]string, len(f.TimezoneAbbreviations)),
	}
	for k, v := range f.Nicknames {
		lex.nicknames[lower(k)] = lower(v)
	}
	for _, w := range f.Stopwords {
		lex.stopwords[lower(w)] = struct{}{}
	}
	for k, v := range f.Abbreviations {
		lex.abbreviations[lower(k)] = lower(v)
	}
	for canonical, aliases := range f.MeetingTypes {
		c := lower(canonical)
		lex.meetingTypes[c] = c
		for _, alias := range aliases {
			lex.meetingTypes[lower(alias)] = c
		}
	}
	for k, v := range f.TimezoneAbbreviations {
		lex.zones[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	lex.prefixes = lowerAll(f.TitlePrefixes)
	lex.suffixes = lowerAll(f.TitleSuffixes)
	// Longest first so "updated invitation:" wins over "invitation:".
	sort.SliceStable(lex.prefixes, func(i, j int) bool { return len(lex.prefixes[i]) > len(lex.prefixes[j]) })
	sort.SliceStable(lex.suffixes, func(i, j int) bool { return len(lex.suffixes[i]) > len(lex.suffixes[j]) })
	return lex
}

// CanonicalName maps a lowercase given name onto its canonical form.
func (l *Lexicon) CanonicalName(name string) string {
	if c, ok := l.nicknames[name]; ok {
		return c
	}
	return name
}

// IsStopword reports whether token carries no matching signal.
func (l *Lexicon) IsStopword(token string) bool {
	_, ok := l.stopwords[token]
	return ok
}

// Expand returns the expansion of an abbreviation token.
func (l *Lexicon) Expand(token string) (string, bool) {
	v, ok := l.abbreviations[token]
	return v, ok
}

// MeetingType resolves a token to its canonical meeting-type term.
func (l *Lexicon) MeetingType(token string) (string, bool) {
	v, ok := l.meetingTypes[token]
	return v, ok
}

// Prefixes returns the title prefixes, longest first.
func (l *Lexicon) Prefixes() []string { return append([]string(nil), l.prefixes...) }

// Suffixes returns the title suffixes, longest first.
func (l *Lexicon) Suffixes() []string { return append([]string(nil), l.suffixes...) }

// Zones returns a copy of the abbreviation table, keyed in upper case. Targets
// are IANA names or fixed "+HH:MM" offsets.
func (l *Lexicon) Zones() map[string]string {
	out := make(map[string]string, len(l.zones))
	for k, v := range l.zones {
		out[k] = v
	}
	return out
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := lower(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
