package model

// Game is an entry of the static games catalog shown on the games tab.
type Game struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Category string `json:"category"`
	Players  string `json:"players"`
}
