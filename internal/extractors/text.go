package extractors

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/miradorstack/meeting-correlator/internal/lexicon"
	"github.com/miradorstack/meeting-correlator/internal/models"
)

const (
	excerptRunes       = 200
	meetingTypeBoost   = 1.5
	longTokenBoost     = 1.2
	longTokenThreshold = 6
)

// Keywords is the weighted keyword profile of a normalised text.
type Keywords struct {
	// Terms are the distinct keywords in first-seen order.
	Terms   []string
	Weights map[string]float64
	// MeetingType is the first recognised meeting-type term, if any.
	MeetingType string
}

// Has reports whether term is a keyword.
func (k Keywords) Has(term string) bool {
	_, ok := k.Weights[term]
	return ok
}

// TextAnalyzer normalises titles and extracts keywords.
type TextAnalyzer struct {
	lex *lexicon.Lexicon
}

// NewTextAnalyzer builds an analyzer over lex.
func NewTextAnalyzer(lex *lexicon.Lexicon) *TextAnalyzer {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &TextAnalyzer{lex: lex}
}

// NoticeText returns the text used to compare a notice: its title, else a
// body excerpt.
func (t *TextAnalyzer) NoticeText(n models.Notice) (string, bool) {
	if title, ok := n.Title(); ok {
		return title, true
	}
	if body, ok := n.Body(); ok {
		return excerpt(body), true
	}
	return "", false
}

// ArtifactText returns the text used to compare an artifact: its title, the
// filename lead, a metadata title, else a content excerpt.
func (t *TextAnalyzer) ArtifactText(a models.Artifact) (string, bool) {
	if title, ok := a.Title(); ok {
		return title, true
	}
	if filename, ok := a.Filename(); ok {
		parts := SplitFilename(filename)
		if parts.Lead != "" && len(parts.Names) == 0 {
			return parts.Lead, true
		}
	}
	if meta, ok := a.Metadata(); ok {
		if title, ok := meta.Text("title", "subject"); ok {
			return title, true
		}
	}
	if content, ok := a.Content(); ok {
		return excerpt(content), true
	}
	return "", false
}

// Normalize lowercases, strips known prefixes and suffixes, expands
// abbreviations and removes punctuation.
func (t *TextAnalyzer) Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = t.stripAffixes(s)

	fields := strings.Fields(s)
	for i, field := range fields {
		core := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) && r != '&' && r != '/'
		})
		if expanded, ok := t.lex.Expand(core); ok {
			fields[i] = expanded
		} else if expanded, ok := t.lex.Expand(field); ok {
			fields[i] = expanded
		}
	}

	var b strings.Builder
	for _, r := range strings.Join(fields, " ") {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (t *TextAnalyzer) stripAffixes(s string) string {
	for changed := true; changed; {
		changed = false
		for _, prefix := range t.lex.Prefixes() {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				changed = true
			}
		}
		for _, suffix := range t.lex.Suffixes() {
			if strings.HasSuffix(s, suffix) {
				s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
				changed = true
			}
		}
	}
	return s
}

// Keywords extracts weighted keywords from normalised text. Meeting-type
// aliases are folded onto their canonical term.
func (t *TextAnalyzer) Keywords(normalized string) Keywords {
	kw := Keywords{Weights: make(map[string]float64)}
	counts := make(map[string]int)
	for _, token := range strings.Fields(normalized) {
		if utf8.RuneCountInString(token) < 2 || t.lex.IsStopword(token) {
			continue
		}
		if canonical, ok := t.lex.MeetingType(token); ok {
			token = canonical
			if kw.MeetingType == "" {
				kw.MeetingType = canonical
			}
		}
		if counts[token] == 0 {
			kw.Terms = append(kw.Terms, token)
		}
		counts[token]++
	}
	for _, term := range kw.Terms {
		weight := float64(counts[term])
		if _, ok := t.lex.MeetingType(term); ok {
			weight *= meetingTypeBoost
		}
		if utf8.RuneCountInString(term) > longTokenThreshold {
			weight *= longTokenBoost
		}
		kw.Weights[term] = weight
	}
	return kw
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if line, _, ok := strings.Cut(text, "\n"); ok && strings.TrimSpace(line) != "" {
		text = strings.TrimSpace(line)
	}
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text
	}
	return string([]rune(text)[:excerptRunes])
}
