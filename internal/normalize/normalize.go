// Package normalize provides the pure string transforms used to line up
// storefront titles with HowLongToBeat names. Three increasingly
// aggressive levels are available; each level is idempotent.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Level selects how aggressively a title is transformed.
type Level string

const (
	LevelMinimal    Level = "minimal"
	LevelStandard   Level = "standard"
	LevelAggressive Level = "aggressive"
)

// foldAccents strips combining marks so "Pokémon" and "Pokemon" meet.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	trademarkGlyphs = strings.NewReplacer("™", "", "®", "", "©", "")
	punctuation     = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespace      = regexp.MustCompile(`\s+`)
	yearPattern     = regexp.MustCompile(`\((\d{4})\)`)

	// Subtitle separators, checked against the minimal form before
	// punctuation is stripped.
	subtitleSeparators = []string{":", " - ", " – ", " — "}

	leadingArticles = []string{"the ", "a ", "an "}

	editionSuffixes = []string{
		"game of the year edition",
		"definitive edition",
		"enhanced edition",
		"complete edition",
		"deluxe edition",
		"special edition",
		"ultimate edition",
		"anniversary edition",
		"goty edition",
		"remastered",
		"remaster",
		"redux",
		"goty",
		"hd",
	}

	// Acronyms storefronts use that HLTB spells out.
	acronyms = map[string]string{
		"gta":  "grand theft auto",
		"cod":  "call of duty",
		"tlou": "the last of us",
		"botw": "breath of the wild",
		"rdr":  "red dead redemption",
		"ac":   "assassins creed",
	}

	romanNumerals = map[string]string{
		"ii": "2", "iii": "3", "iv": "4", "v": "5",
		"vi": "6", "vii": "7", "viii": "8", "ix": "9", "x": "10",
	}

	stopWords = map[string]bool{
		"the": true, "a": true, "an": true,
		"of": true, "and": true, "or": true,
		"in": true, "on": true, "at": true,
		"to": true, "for": true, "with": true,
	}
)

// MinCoreWordLength is the shortest token CoreWords keeps.
const MinCoreWordLength = 3

// Normalize applies the named level to title.
func Normalize(title string, level Level) string {
	switch level {
	case LevelStandard:
		return Standard(title)
	case LevelAggressive:
		return Aggressive(title)
	default:
		return Minimal(title)
	}
}

// Minimal lowercases, strips trademark glyphs and accents, and
// collapses whitespace. Punctuation survives.
func Minimal(title string) string {
	s := strings.TrimSpace(title)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = trademarkGlyphs.Replace(s)
	if folded, _, err := transform.String(foldAccents, s); err == nil {
		s = folded
	}
	return collapse(s)
}

// Standard is Minimal plus full punctuation removal.
func Standard(title string) string {
	s := Minimal(title)
	if s == "" {
		return ""
	}
	s = punctuation.ReplaceAllString(s, " ")
	return collapse(s)
}

// Aggressive is Standard plus subtitle trimming, article and edition
// suffix removal, acronym expansion, and Roman numeral conversion.
func Aggressive(title string) string {
	s := Minimal(title)
	if s == "" {
		return ""
	}

	// Subtitles are cut at the first separator while punctuation is
	// still present; "Ori: The Will of the Wisps" keeps only "Ori".
	for _, sep := range subtitleSeparators {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
			break
		}
	}

	s = punctuation.ReplaceAllString(s, " ")
	s = collapse(s)

	// Acronyms expand before the article strip: "tlou" becomes
	// "the last of us", and the leading "the" must fall like any other
	// article or the level stops being idempotent.
	words := strings.Fields(s)
	for i, w := range words {
		if expanded, ok := acronyms[w]; ok {
			words[i] = expanded
			continue
		}
		if digit, ok := romanNumerals[w]; ok {
			words[i] = digit
		}
	}
	s = collapse(strings.Join(words, " "))

	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) {
			s = strings.TrimPrefix(s, article)
			break
		}
	}

	// Stacked suffixes ("... Definitive Edition Remastered") strip in
	// one pass so the level stays idempotent.
	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range editionSuffixes {
			if strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSuffix(s, " "+suffix)
				stripped = true
			}
		}
	}

	return s
}

// ExtractYear returns a parenthesized four-digit year from the title,
// accepted only inside [1980, current year + 1].
func ExtractYear(title string) (int, bool) {
	m := yearPattern.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if year < 1980 || year > time.Now().Year()+1 {
		return 0, false
	}
	return year, true
}

// RemoveYear strips the exact parenthesized year substring, if any.
func RemoveYear(title string) string {
	year, ok := ExtractYear(title)
	if !ok {
		return title
	}
	return collapse(strings.Replace(title, fmt.Sprintf("(%d)", year), "", 1))
}

// CoreWords returns the lowercase content words of a title: tokens at
// or above MinCoreWordLength with articles and prepositions excluded.
func CoreWords(title string) []string {
	s := Standard(title)
	if s == "" {
		return nil
	}
	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) < MinCoreWordLength || stopWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
