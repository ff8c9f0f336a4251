package model

// Friend is an entry of the local friend list. ID is another user's UserID.
type Friend struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Avatar   string `json:"avatar,omitempty"`
	Online   bool   `json:"online"`
	LastSeen string `json:"lastSeen,omitempty"` // display string, not a timestamp
}
