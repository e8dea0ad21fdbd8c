package standup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/extract"
)

// ResponseStore persists standup replies.
type ResponseStore interface {
	UpsertResponse(ctx context.Context, r *database.Response) (int64, error)
}

// Confirmation is what the bot tells a member after recording a reply.
type Confirmation struct {
	ResponseID  int64
	Result      extract.Result
	Lines       []string
	ParseFailed bool
}

// Text joins the confirmation lines.
func (c Confirmation) Text() string {
	return strings.Join(c.Lines, "\n")
}

// Service records standup replies.
type Service struct {
	store     ResponseStore
	extractor extract.Extractor
	settings  *Settings
	messages  config.MessagesConfig
	logger    *slog.Logger
}

// NewService creates a standup reply processor.
func NewService(store ResponseStore, extractor extract.Extractor, settings *Settings, messages config.MessagesConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:     store,
		extractor: extractor,
		settings:  settings,
		messages:  messages,
		logger:    logger.With("component", "standup"),
	}
}

// Process extracts the fields of m and upserts them as the member's response
// for the local date m was received on. The raw text is stored even when
// nothing could be extracted.
func (s *Service) Process(ctx context.Context, m Inbound) (Confirmation, error) {
	result := s.extractor.Extract(ctx, m.Text)

	date := m.ReceivedAt.In(s.settings.Location())
	resp := &database.Response{
		UserID:             m.UserID,
		Username:           m.DisplayName,
		MessageID:          m.MessageID,
		ResponseDate:       database.DateKey(date),
		TodayWork:          nullString(result.Today),
		TomorrowCommitment: nullString(result.Tomorrow),
		RawMessage:         m.Text,
		CreatedAt:          m.ReceivedAt.UTC(),
	}

	id, err := s.store.UpsertResponse(ctx, resp)
	if err != nil {
		return Confirmation{}, fmt.Errorf("failed to save standup response: %w", err)
	}

	s.logger.InfoContext(ctx, "Standup response recorded",
		"response_id", id,
		"user_id", m.UserID,
		"date", resp.ResponseDate,
		"has_today", result.Today != "",
		"has_tomorrow", result.Tomorrow != "")

	conf := Confirmation{ResponseID: id, Result: result}
	if result.Empty() {
		conf.ParseFailed = true
		conf.Lines = []string{s.messages.ParseFailed}
		return conf, nil
	}
	if result.Today != "" {
		conf.Lines = append(conf.Lines, fmt.Sprintf(s.messages.RecordedToday, result.Today))
	}
	if result.Tomorrow != "" {
		conf.Lines = append(conf.Lines, fmt.Sprintf(s.messages.RecordedTomorrow, result.Tomorrow))
	}
	return conf, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
