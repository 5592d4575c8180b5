package extractors

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

// filenameStamp matches "2025_06_24 08_48 PDT" style stamps. The AM/PM
// marker and the zone are optional; a marker is never read as a zone.
var filenameStamp = regexp.MustCompile(`(\d{4})_(\d{2})_(\d{2})(?:[ _T](\d{2})_(\d{2})(?:_(\d{2}))?(?:\s*([AaPp][Mm])\b)?(?:\s+([A-Z]{1,5}|[A-Za-z]+/[A-Za-z_]+)\b)?)?`)

var knownExtensions = map[string]struct{}{
	".docx": {}, ".doc": {}, ".pdf": {}, ".txt": {}, ".md": {}, ".gdoc": {}, ".html": {},
}

// FilenameParts is the decomposition of an artifact filename.
type FilenameParts struct {
	// Lead is the text before the stamp: a title or a participant block.
	Lead string
	// Names is set when Lead follows the "Name1 _ Name2" convention.
	Names []string
	Stamp *FilenameStamp
}

// FilenameStamp holds the raw captures of an embedded timestamp.
type FilenameStamp struct {
	Year, Month, Day     string
	Hour, Minute, Second string
	// Meridiem is "AM" or "PM" for 12-hour stamps.
	Meridiem string
	Zone     string
}

// HasClock reports whether the stamp carries a time of day.
func (s *FilenameStamp) HasClock() bool {
	return s != nil && s.Hour != "" && s.Minute != ""
}

// SplitFilename decomposes an artifact filename.
func SplitFilename(filename string) FilenameParts {
	name := strings.TrimSpace(filename)
	if ext := strings.ToLower(path.Ext(name)); ext != "" {
		if _, ok := knownExtensions[ext]; ok {
			name = strings.TrimSuffix(name, name[len(name)-len(ext):])
		}
	}

	var parts FilenameParts
	lead := name
	if loc := filenameStamp.FindStringSubmatchIndex(name); loc != nil {
		m := filenameStamp.FindStringSubmatch(name)
		parts.Stamp = &FilenameStamp{
			Year: m[1], Month: m[2], Day: m[3],
			Hour: m[4], Minute: m[5], Second: m[6],
			Meridiem: strings.ToUpper(m[7]),
			Zone:     m[8],
		}
		lead = name[:loc[0]]
	}
	lead = strings.TrimFunc(lead, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '|'
	})
	parts.Lead = lead
	parts.Names = splitNameBlock(lead)
	return parts
}

// splitNameBlock recognises "Name1 _ Name2 _ Name3".
func splitNameBlock(lead string) []string {
	if !strings.Contains(lead, " _ ") {
		return nil
	}
	segments := strings.Split(lead, " _ ")
	names := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" || strings.IndexFunc(seg, unicode.IsDigit) >= 0 {
			continue
		}
		names = append(names, seg)
	}
	if len(names) < 2 {
		return nil
	}
	return names
}
