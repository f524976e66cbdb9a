package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	titleTrimSet  = " \t-–—:|;"
)

// fold lower-cases s and strips combining marks so "Concluído" and
// "CONCLUIDO" compare equal. The transformer is stateful, so one is built
// per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// canonicalID upper-cases an identifier and joins its parts with a hyphen.
func canonicalID(raw string) string {
	return strings.ToUpper(whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), "-"))
}

// cleanTitle collapses table separators and whitespace left behind once the
// identifier is cut out of a line.
func cleanTitle(s string) string {
	s = strings.ReplaceAll(s, "|", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, titleTrimSet)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncate cuts s to at most max characters.
func truncate(s string, max int) string {
	if runeLen(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// findWord returns the leftmost match of re in s that is not glued to other
// letters, so "Maria" does not fire inside "Marianas".
func findWord(re *regexp.Regexp, s string) (int, int, bool) {
	if re == nil {
		return 0, 0, false
	}
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if loc[0] > 0 {
			if r, _ := utf8.DecodeLastRuneInString(s[:loc[0]]); unicode.IsLetter(r) {
				continue
			}
		}
		if loc[1] < len(s) {
			if r, _ := utf8.DecodeRuneInString(s[loc[1]:]); unicode.IsLetter(r) {
				continue
			}
		}
		return loc[0], loc[1], true
	}
	return 0, 0, false
}
