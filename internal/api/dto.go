package api

import "time"

// DocumentItem is one tracked document in a list response.
type DocumentItem struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentItem `json:"documents"`
	Total     int            `json:"total"`
}

// ResolveResponse answers an identifier resolution. Href is the relative
// reference from the "from" location when one was supplied.
type ResolveResponse struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Href     string `json:"href,omitempty"`
}

// RedirectRuleItem is one old→new rule.
type RedirectRuleItem struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RedirectListResponse wraps the synthesized redirect rules plus the
// identifiers that disappeared with no destination.
type RedirectListResponse struct {
	Rules   []RedirectRuleItem `json:"rules"`
	Removed []string           `json:"removed,omitempty"`
}

// BackrefsResponse lists the identifiers of documents referencing one id.
type BackrefsResponse struct {
	ID         string   `json:"id"`
	References []string `json:"references"`
}
