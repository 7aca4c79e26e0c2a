// Package assets holds the demo room used by the seed tool and the in-memory store.
package assets

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

//go:embed demo.json
var demoJSON []byte

// DemoTeam mirrors a team entry in demo.json
type DemoTeam struct {
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Budget int64  `json:"budget"`
}

// DemoPlayer mirrors a player entry in demo.json
type DemoPlayer struct {
	Name        string            `json:"name"`
	Nationality string            `json:"nationality"`
	Role        models.PlayerRole `json:"role"`
	Age         int               `json:"age"`
	BasePrice   int64             `json:"base_price"`
}

type Demo struct {
	Room struct {
		Name     string              `json:"name"`
		Settings models.RoomSettings `json:"settings"`
	} `json:"room"`
	Teams   []DemoTeam   `json:"teams"`
	Players []DemoPlayer `json:"players"`
}

// LoadDemo decodes the embedded demo room.
func LoadDemo() (*Demo, error) {
	var demo Demo
	if err := json.Unmarshal(demoJSON, &demo); err != nil {
		return nil, fmt.Errorf("unmarshal demo data: %w", err)
	}
	return &demo, nil
}

// Team converts t into a team of roomID.
func (t DemoTeam) Team(roomID *uuid.UUID) models.Team {
	team := models.Team{RoomID: roomID, Name: t.Name, Budget: t.Budget}
	if t.Logo != "" {
		logo := t.Logo
		team.Logo = &logo
	}
	return team
}

// Player converts p into an available player of roomID.
func (p DemoPlayer) Player(roomID *uuid.UUID) models.Player {
	return models.Player{
		RoomID:      roomID,
		Name:        p.Name,
		Nationality: p.Nationality,
		Role:        p.Role,
		Age:         p.Age,
		BasePrice:   p.BasePrice,
		Status:      models.PlayerStatusAvailable,
	}
}
