package standup_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
)

func setupStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "standup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func defaults() config.StandupConfig {
	return config.StandupConfig{
		Timezone:       "America/New_York",
		Hour:           9,
		Minute:         0,
		ResponseWindow: 3 * time.Hour,
		FollowUpLead:   30 * time.Minute,
		HistoryLimit:   5,
	}
}

func messages() config.MessagesConfig {
	return config.MessagesConfig{
		ParseFailed:      "could not parse",
		RecordedToday:    "today: %s",
		RecordedTomorrow: "tomorrow: %s",
	}
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

var bg = context.Background()
