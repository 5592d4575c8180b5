package extractors

import (
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/miradorstack/meeting-correlator/internal/lexicon"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// Participant is one extracted identity.
type Participant struct {
	// Display is the human-facing name ("David Chen").
	Display string
	// Normalized is the comparison form ("david chen").
	Normalized string
	Tokens     []string
}

// First returns the first name token.
func (p Participant) First() string {
	if len(p.Tokens) == 0 {
		return ""
	}
	return p.Tokens[0]
}

// Last returns the last name token, empty for single-token names.
func (p Participant) Last() string {
	if len(p.Tokens) < 2 {
		return ""
	}
	return p.Tokens[len(p.Tokens)-1]
}

// ParticipantExtractor derives comparable identities from notices and artifacts.
type ParticipantExtractor struct {
	lex    *lexicon.Lexicon
	logger *slog.Logger
}

// NewParticipantExtractor builds an extractor over lex.
func NewParticipantExtractor(lex *lexicon.Lexicon, logger *slog.Logger) *ParticipantExtractor {
	if lex == nil {
		lex = lexicon.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParticipantExtractor{lex: lex, logger: logger}
}

// FromNotice extracts participants from the notice's candidate list fields.
func (e *ParticipantExtractor) FromNotice(n models.Notice) []Participant {
	raw, ok := n.Participants()
	if !ok {
		if _, present := n.Value(models.NoticeParticipantKeys...); present {
			e.logger.Debug("skipping malformed participant list", utils.NoticeID(n.ID))
		}
		return nil
	}
	return e.build(raw)
}

// FromArtifact extracts participants from metadata, falling back to the
// "Name1 _ Name2" filename convention.
func (e *ParticipantExtractor) FromArtifact(a models.Artifact) []Participant {
	if raw, ok := a.MetadataParticipants(); ok {
		if people := e.build(raw); len(people) > 0 {
			return people
		}
	}
	if filename, ok := a.Filename(); ok {
		if names := SplitFilename(filename).Names; len(names) > 0 {
			return e.build(names)
		}
	}
	return nil
}

// build converts raw values, dropping blanks and duplicates in input order.
func (e *ParticipantExtractor) build(raw []string) []Participant {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Participant, 0, len(raw))
	for _, value := range raw {
		display := DisplayName(value)
		normalized := e.Normalize(display)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, Participant{
			Display:    display,
			Normalized: normalized,
			Tokens:     strings.Fields(normalized),
		})
	}
	return out
}

// DisplayName turns an email address or "Name <addr>" into a display name.
// Plain names pass through unchanged.
func DisplayName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, "<") {
		if addr, err := mail.ParseAddress(value); err == nil {
			if addr.Name != "" {
				return addr.Name
			}
			value = addr.Address
		}
	}
	at := strings.IndexByte(value, '@')
	if at < 0 {
		return value
	}
	local := value[:at]
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	segments := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsDigit(r)
	})
	caser := cases.Title(language.English)
	for i, seg := range segments {
		segments[i] = caser.String(seg)
	}
	return strings.Join(segments, " ")
}

// Normalize lowercases, folds diacritics, strips punctuation and canonicalises
// the first-name nickname.
func (e *ParticipantExtractor) Normalize(name string) string {
	folded := FoldDiacritics(name)
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			b.WriteByte(' ')
		}
	}
	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return ""
	}
	tokens[0] = e.lex.CanonicalName(tokens[0])
	return strings.Join(tokens, " ")
}

// FoldDiacritics strips combining marks ("José" → "Jose").
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
