package catalog

import (
	"regexp"
	"strings"
)

// setCodePattern matches codes like LOB-EN001, MRD-DE001, or LOB-001
// (early sets carry no region segment).
var setCodePattern = regexp.MustCompile(`^([A-Z0-9]{2,5})-([A-Z]{0,2})([0-9]{1,3}[A-Z]?)$`)

// SetCodeParts is the decomposition of a printed set code.
type SetCodeParts struct {
	Prefix string
	Region string
	Number string
}

// ParseSetCode splits a set code into prefix, region, and number.
func ParseSetCode(code string) (SetCodeParts, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	match := setCodePattern.FindStringSubmatch(trimmed)
	if match == nil {
		return SetCodeParts{}, false
	}
	return SetCodeParts{Prefix: match[1], Region: match[2], Number: match[3]}, true
}

// NormalizeSetCode strips the region segment so printings of the same
// set compare equal across languages: LOB-EN001 and LOB-DE001 both
// normalize to LOB-001. Codes that do not parse are returned
// uppercased unchanged.
func NormalizeSetCode(code string) string {
	parts, ok := ParseSetCode(code)
	if !ok {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return parts.Prefix + "-" + parts.Number
}

// ocrConfusions maps characters OCR engines routinely misread on foil
// card stock to their likely intended digit or letter.
var ocrConfusions = map[rune][]rune{
	'O': {'0'},
	'0': {'O'},
	'I': {'1'},
	'L': {'1'},
	'1': {'I'},
	'S': {'5'},
	'5': {'S'},
	'B': {'8'},
	'8': {'B'},
	'Z': {'2'},
	'2': {'Z'},
}

// CorrectSetCode returns the cleaned code plus alternate readings
// produced by substituting single commonly-confused characters. The
// original reading always comes first.
func CorrectSetCode(raw string) []string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return nil
	}

	seen := map[string]struct{}{cleaned: {}}
	out := []string{cleaned}
	runes := []rune(cleaned)
	for i, r := range runes {
		for _, alt := range ocrConfusions[r] {
			candidate := make([]rune, len(runes))
			copy(candidate, runes)
			candidate[i] = alt
			code := string(candidate)
			if _, ok := seen[code]; ok {
				continue
			}
			if _, valid := ParseSetCode(code); !valid {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}
