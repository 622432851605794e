package match

// YearKey disambiguates same-named re-releases: the key is the
// standard-normalized title plus the year extracted from the query.
type YearKey struct {
	Title string
	Year  int
}

// Mappings holds the static override tables consulted before any fuzzy
// computation. All keys and values are standard-normalized strings; the
// value is treated as immutable once handed to a Matcher.
type Mappings struct {
	// Aliases maps a normalized alias to the normalized canonical name
	// HLTB uses for it.
	Aliases map[string]string

	// ByYear maps (normalized title, release year) to the canonical
	// name of that specific release.
	ByYear map[YearKey]string

	// Skip lists titles with no single-player content; values are the
	// human-readable reasons.
	Skip map[string]string
}

// DefaultMappings returns the tables shipped with the service. Callers
// needing different overrides construct their own Mappings and inject
// them into NewMatcher.
func DefaultMappings() Mappings {
	return Mappings{
		Aliases: map[string]string{
			"cs go":          "counter strike global offensive",
			"csgo":           "counter strike global offensive",
			"cs 2":           "counter strike 2",
			"pubg":           "playerunknown s battlegrounds",
			"gta v":          "grand theft auto v",
			"gta 5":          "grand theft auto v",
			"tf2":            "team fortress 2",
			"wow":            "world of warcraft",
			"botw":           "the legend of zelda breath of the wild",
			"ff7 remake":     "final fantasy vii remake",
			"sekiro":         "sekiro shadows die twice",
			"pokemon sword":  "pokemon sword and shield",
			"pokemon shield": "pokemon sword and shield",
			"witcher 3":      "the witcher 3 wild hunt",
			"dark souls 3":   "dark souls iii",
			"division 2":     "tom clancy s the division 2",
		},
		ByYear: map[YearKey]string{
			{Title: "doom", Year: 1993}:           "doom",
			{Title: "doom", Year: 2016}:           "doom 2016",
			{Title: "prey", Year: 2006}:           "prey",
			{Title: "prey", Year: 2017}:           "prey 2017",
			{Title: "tomb raider", Year: 1996}:    "tomb raider",
			{Title: "tomb raider", Year: 2013}:    "tomb raider 2013",
			{Title: "battlefront", Year: 2004}:    "star wars battlefront",
			{Title: "battlefront", Year: 2015}:    "star wars battlefront 2015",
			{Title: "modern warfare", Year: 2007}: "call of duty 4 modern warfare",
			{Title: "modern warfare", Year: 2019}: "call of duty modern warfare",
		},
		Skip: map[string]string{
			"counter strike 2":              "multiplayer-only shooter with no campaign",
			"dota 2":                        "multiplayer-only MOBA with no campaign",
			"league of legends":             "multiplayer-only MOBA with no campaign",
			"valorant":                      "multiplayer-only shooter with no campaign",
			"rocket league":                 "multiplayer-only sports game with no campaign",
			"fall guys":                     "multiplayer-only party game with no campaign",
			"playerunknown s battlegrounds": "multiplayer-only battle royale with no campaign",
			"apex legends":                  "multiplayer-only battle royale with no campaign",
			"team fortress 2":               "multiplayer-only shooter with no meaningful campaign",
		},
	}
}
