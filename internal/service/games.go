package service

import (
	"strings"

	"github.com/sakif/rilmas/internal/model"
)

var gameCatalog = []model.Game{
	{ID: "1", Name: "Roblox", Icon: "🎮", Category: "Sandbox", Players: "200M+"},
	{ID: "2", Name: "Minecraft", Icon: "⛏️", Category: "Sandbox", Players: "150M+"},
	{ID: "3", Name: "Fortnite", Icon: "🔫", Category: "Battle Royale", Players: "80M+"},
	{ID: "4", Name: "Valorant", Icon: "🎯", Category: "FPS", Players: "20M+"},
	{ID: "5", Name: "CS:GO", Icon: "💣", Category: "FPS", Players: "30M+"},
	{ID: "6", Name: "Dota 2", Icon: "⚔️", Category: "MOBA", Players: "12M+"},
	{ID: "7", Name: "League of Legends", Icon: "🏆", Category: "MOBA", Players: "150M+"},
	{ID: "8", Name: "Apex Legends", Icon: "🚀", Category: "Battle Royale", Players: "15M+"},
	{ID: "9", Name: "Overwatch 2", Icon: "🎪", Category: "FPS", Players: "25M+"},
	{ID: "10", Name: "PUBG", Icon: "🪂", Category: "Battle Royale", Players: "30M+"},
	{ID: "11", Name: "Among Us", Icon: "👾", Category: "Social", Players: "10M+"},
	{ID: "12", Name: "Fall Guys", Icon: "🎉", Category: "Party", Players: "8M+"},
	{ID: "13", Name: "Genshin Impact", Icon: "⚡", Category: "RPG", Players: "60M+"},
	{ID: "14", Name: "Rocket League", Icon: "🚗", Category: "Sports", Players: "15M+"},
	{ID: "15", Name: "Dead by Daylight", Icon: "🔦", Category: "Horror", Players: "5M+"},
	{ID: "16", Name: "Rainbow Six Siege", Icon: "🏢", Category: "FPS", Players: "12M+"},
	{ID: "17", Name: "World of Warcraft", Icon: "🐉", Category: "MMORPG", Players: "5M+"},
	{ID: "18", Name: "GTA Online", Icon: "🚓", Category: "Action", Players: "40M+"},
	{ID: "19", Name: "Rust", Icon: "🔨", Category: "Survival", Players: "3M+"},
	{ID: "20", Name: "Terraria", Icon: "🌍", Category: "Sandbox", Players: "8M+"},
	{ID: "21", Name: "Stardew Valley", Icon: "🌾", Category: "Simulation", Players: "5M+"},
	{ID: "22", Name: "Phasmophobia", Icon: "👻", Category: "Horror", Players: "2M+"},
	{ID: "23", Name: "The Forest", Icon: "🌲", Category: "Survival", Players: "1M+"},
	{ID: "24", Name: "Warframe", Icon: "🤖", Category: "Action", Players: "10M+"},
	{ID: "25", Name: "Destiny 2", Icon: "🌌", Category: "FPS", Players: "8M+"},
}

// GameService serves the static games catalog.
type GameService struct{}

func NewGameService() *GameService {
	return &GameService{}
}

// All returns a copy of the whole catalog in catalog order.
func (s *GameService) All() []model.Game {
	return append([]model.Game(nil), gameCatalog...)
}

// Search returns games whose name or category contains query, ignoring
// case. A blank query returns the whole catalog.
func (s *GameService) Search(query string) []model.Game {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.All()
	}

	matches := []model.Game{}
	for _, g := range gameCatalog {
		if strings.Contains(strings.ToLower(g.Name), q) ||
			strings.Contains(strings.ToLower(g.Category), q) {
			matches = append(matches, g)
		}
	}
	return matches
}
