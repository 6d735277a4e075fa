package models

import (
	"encoding/json"
	"strings"
)

// ID is a Disqus identifier. The API returns ids as strings, numbers, null,
// or (for related objects such as a post's thread) a nested object carrying an id.
type ID string

// UnmarshalJSON accepts every shape the API uses for identifiers.
func (id *ID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*id = ""
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
	case '{':
		var obj struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*id = obj.ID
	default:
		*id = ID(raw)
	}
	return nil
}

func (id ID) String() string { return string(id) }

// Author is the author block attached to posts, moderators and whoami.
type Author struct {
	ID          ID     `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// Post represents a single forum comment.
type Post struct {
	ID        ID     `json:"id"`
	Thread    ID     `json:"thread"`
	Parent    ID     `json:"parent"`
	Author    Author `json:"author"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	IsSpam    bool   `json:"isSpam"`
	IsDeleted bool   `json:"isDeleted"`
}

// Thread represents a forum discussion thread.
type Thread struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	IsClosed  bool   `json:"isClosed"`
}

// Moderator is one entry of forums/listModerators.
type Moderator struct {
	ID   ID      `json:"id"`
	User *Author `json:"user"`
}
