package models

// ModSnapshot is the cached view of the forum's moderators.
// It is replaced wholesale on every successful refresh.
type ModSnapshot struct {
	IDs          []string `json:"ids"`
	Usernames    []string `json:"usernames"`
	DisplayNames []string `json:"display_names"`
}
