package api

// searchRequest is the structured search payload posted to the HLTB
// search endpoint.
type searchRequest struct {
	SearchType    string        `json:"searchType"`
	SearchTerms   []string      `json:"searchTerms"`
	SearchPage    int           `json:"searchPage"`
	Size          int           `json:"size"`
	SearchOptions searchOptions `json:"searchOptions"`
}

type searchOptions struct {
	Games gameOptions `json:"games"`
}

type gameOptions struct {
	UserID       int    `json:"userId"`
	Platform     string `json:"platform"`
	SortCategory string `json:"sortCategory"`
}

// searchResponse mirrors the JSON the search endpoint returns. Time
// fields arrive in seconds.
type searchResponse struct {
	Count int          `json:"count"`
	Data  []searchGame `json:"data"`
}

type searchGame struct {
	GameID       int     `json:"game_id"`
	GameName     string  `json:"game_name"`
	CompMain     float64 `json:"comp_main"`
	CompPlus     float64 `json:"comp_plus"`
	Comp100      float64 `json:"comp_100"`
	CompAll      float64 `json:"comp_all"`
	ProfileSteam int     `json:"profile_steam"`
	ReleaseWorld int     `json:"release_world"`
}
