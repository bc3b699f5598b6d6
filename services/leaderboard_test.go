package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	seedUser(t, db, "u1", "ana", "school of engineering", 300)
	seedUser(t, db, "u2", "ben", "school of engineering", 500)
	seedUser(t, db, "u3", "cara", "school of nursing", 300)

	entries, err := svc.TopUsers(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "ben", entries[0].Username)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Sapling", entries[0].EcoLevel)

	// ties break alphabetically so the order is stable
	assert.Equal(t, "ana", entries[1].Username)
	assert.Equal(t, "cara", entries[2].Username)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestAroundUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	names := []string{"ana", "ben", "cara", "dan", "eva", "finn", "gail"}
	for i, name := range names {
		seedUser(t, db, "u"+name, name, "", int64(1000-i*100)) // ana is #1
	}

	window, err := svc.AroundUser("udan", 1)
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "cara", window[0].Username)
	assert.Equal(t, 3, window[0].Rank)
	assert.Equal(t, "dan", window[1].Username)
	assert.Equal(t, 4, window[1].Rank)
	assert.Equal(t, "eva", window[2].Username)

	// window clamps at the top of the board
	top, err := svc.AroundUser("uana", 2)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "ana", top[0].Username)

	_, err = svc.AroundUser("nobody", 2)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDepartmentStandings(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	seedUser(t, db, "u1", "ana", "school of engineering", 300)
	seedUser(t, db, "u2", "ben", "school of engineering", 500)
	seedUser(t, db, "u3", "cara", "school of nursing", 600)
	seedUser(t, db, "u4", "dan", "", 900) // no department, excluded

	standings, err := svc.DepartmentStandings()
	require.NoError(t, err)
	require.Len(t, standings, 2)

	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "School Of Engineering", standings[0].Department)
	assert.Equal(t, int64(2), standings[0].Members)
	assert.Equal(t, int64(800), standings[0].TotalPoints)
	assert.InDelta(t, 400.0, standings[0].AvgPoints, 0.001)

	assert.Equal(t, "School Of Nursing", standings[1].Department)
	assert.Equal(t, int64(600), standings[1].TotalPoints)
}
