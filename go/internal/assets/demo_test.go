package assets

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDemo(t *testing.T) {
	demo, err := LoadDemo()
	require.NoError(t, err)

	assert.NotEmpty(t, demo.Room.Name)
	assert.Len(t, demo.Teams, 8)
	assert.NotEmpty(t, demo.Players)

	roomID := uuid.New()
	for _, p := range demo.Players {
		player := p.Player(&roomID)
		assert.Equal(t, models.PlayerStatusAvailable, player.Status)
		assert.Contains(t, []models.PlayerRole{
			models.PlayerRoleBatsman, models.PlayerRoleBowler,
			models.PlayerRoleAllRounder, models.PlayerRoleWicketkeeper,
		}, player.Role, p.Name)
	}

	team := demo.Teams[0].Team(&roomID)
	require.NotNil(t, team.Logo)
	assert.Equal(t, roomID, *team.RoomID)
}
