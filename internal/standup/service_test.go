package standup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/extract"
	"github.com/edgard/standupbot/internal/standup"
)

type failingStore struct{}

func (failingStore) UpsertResponse(context.Context, *database.Response) (int64, error) {
	return 0, errors.New("disk full")
}

func newService(t *testing.T, store standup.ResponseStore, tz string) *standup.Service {
	t.Helper()
	cfg := defaults()
	cfg.Timezone = tz
	settings := standup.NewSettings(setupStore(t), cfg)
	return standup.NewService(store, extract.NewRules(), settings, messages(), nil)
}

func TestService_Process(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	svc := newService(t, store, "UTC")

	received := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	conf, err := svc.Process(bg, standup.Inbound{
		ChatID:      -100,
		UserID:      1,
		DisplayName: "alice",
		MessageID:   90,
		Text:        "Today I finished the API. Tomorrow I will write tests.",
		ReceivedAt:  received,
	})
	require.NoError(t, err)

	assert.False(t, conf.ParseFailed)
	assert.Equal(t, []string{"today: the API", "tomorrow: write tests"}, conf.Lines)
	assert.Equal(t, "today: the API\ntomorrow: write tests", conf.Text())

	got, err := store.RecentResponsesFor(bg, 1, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, conf.ResponseID, got[0].ID)
	assert.Equal(t, "2025-03-10", got[0].ResponseDate)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, int64(90), got[0].MessageID)
	assert.Equal(t, "write tests", got[0].TomorrowCommitment.String)
}

func TestService_ProcessParseFailureStillSaved(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	svc := newService(t, store, "UTC")

	conf, err := svc.Process(bg, standup.Inbound{UserID: 2, Text: "idk", ReceivedAt: time.Now()})
	require.NoError(t, err)

	assert.True(t, conf.ParseFailed)
	assert.Equal(t, []string{"could not parse"}, conf.Lines)

	got, err := store.RecentResponsesFor(bg, 2, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "idk", got[0].RawMessage)
	assert.False(t, got[0].TodayWork.Valid)
	assert.False(t, got[0].TomorrowCommitment.Valid)
}

func TestService_ProcessUsesLocalDate(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	svc := newService(t, store, "Asia/Tokyo")

	// 20:00 UTC on the 10th is 05:00 on the 11th in Tokyo.
	received := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	_, err := svc.Process(bg, standup.Inbound{UserID: 3, Text: "Tomorrow I will deploy the service.", ReceivedAt: received})
	require.NoError(t, err)

	commitments, err := store.ListCommitmentsOn(bg, time.Date(2025, 3, 11, 0, 0, 0, 0, mustLoad(t, "Asia/Tokyo")))
	require.NoError(t, err)
	require.Len(t, commitments, 1)
	assert.Equal(t, "deploy the service", commitments[0].Text)
}

func TestService_ProcessSecondReplyReplaces(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	svc := newService(t, store, "UTC")
	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	first, err := svc.Process(bg, standup.Inbound{UserID: 4, Text: "Tomorrow I will ship it.", ReceivedAt: at})
	require.NoError(t, err)
	second, err := svc.Process(bg, standup.Inbound{UserID: 4, Text: "Today I did the docs.", ReceivedAt: at.Add(time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, first.ResponseID, second.ResponseID)

	commitments, err := store.ListCommitmentsOn(bg, at)
	require.NoError(t, err)
	assert.Empty(t, commitments)
}

func TestService_ProcessStoreError(t *testing.T) {
	t.Parallel()
	svc := newService(t, failingStore{}, "UTC")

	_, err := svc.Process(bg, standup.Inbound{UserID: 5, Text: "Today x. Tomorrow y.", ReceivedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
