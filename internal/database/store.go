package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/standupbot/internal/errs"
)

// ErrResponseNotFound is returned when a follow-up references a missing response.
var ErrResponseNotFound = errors.New("response not found")

// Store defines the persistence operations of the standup bot.
// Every failure is returned as an errs.DatabaseError.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertResponse stores r, fully replacing any response of the same user
	// on the same date, and returns the response ID. The ID of an existing
	// (user, date) row is kept.
	UpsertResponse(ctx context.Context, r *Response) (int64, error)

	// ListCommitmentsOn returns responses of date with a non-empty commitment.
	ListCommitmentsOn(ctx context.Context, date time.Time) ([]Commitment, error)

	// ListOpenFollowUpsOn is ListCommitmentsOn without the commitments whose
	// follow-up was already sent.
	ListOpenFollowUpsOn(ctx context.Context, date time.Time) ([]Commitment, error)

	// MarkFollowUpSent creates or updates the follow-up row of a response.
	MarkFollowUpSent(ctx context.Context, responseID int64, sentOn time.Time) error

	// GetFollowUp returns the follow-up of a response, or nil, nil if none exists.
	GetFollowUp(ctx context.Context, responseID int64) (*FollowUp, error)

	// GetConfig returns the value stored under key, or def when absent.
	GetConfig(ctx context.Context, key, def string) (string, error)

	// SetConfig persists value under key.
	SetConfig(ctx context.Context, key, value string) error

	// SetConfigs persists every key of values in one transaction: either all
	// of them are written or none is.
	SetConfigs(ctx context.Context, values map[string]string) error

	// RecentResponsesFor returns up to limit responses of a user, newest date first.
	RecentResponsesFor(ctx context.Context, userID int64, limit int) ([]Response, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.NewDatabaseError("ping failed", err)
	}
	return nil
}

func (s *sqlxStore) UpsertResponse(ctx context.Context, r *Response) (int64, error) {
	if r == nil {
		return 0, errs.NewValidationError("cannot save nil response", nil)
	}
	if r.UserID == 0 {
		return 0, errs.NewValidationError("response must have a non-zero user_id", nil)
	}
	if r.ResponseDate == "" {
		return 0, errs.NewValidationError("response must have a response_date", nil)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO standup_responses
            (user_id, username, message_id, response_date, today_work, tomorrow_commitment, raw_message, created_at)
        VALUES
            (:user_id, :username, :message_id, :response_date, :today_work, :tomorrow_commitment, :raw_message, :created_at)
        ON CONFLICT (user_id, response_date) DO UPDATE SET
            username            = excluded.username,
            message_id          = excluded.message_id,
            today_work          = excluded.today_work,
            tomorrow_commitment = excluded.tomorrow_commitment,
            raw_message         = excluded.raw_message,
            created_at          = excluded.created_at
        RETURNING id;
    `

	var id int64
	err := s.withRetry(ctx, func() error {
		rows, err := s.db.NamedQueryContext(ctx, query, r)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return sql.ErrNoRows
		}
		if err := rows.Scan(&id); err != nil {
			return err
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert response", "user_id", r.UserID, "date", r.ResponseDate, "error", err)
		return 0, errs.NewDatabaseError(fmt.Sprintf("failed to upsert response (user %d, date %s)", r.UserID, r.ResponseDate), err)
	}

	r.ID = id
	s.logger.DebugContext(ctx, "Response saved", "response_id", id, "user_id", r.UserID, "date", r.ResponseDate)
	return id, nil
}

func (s *sqlxStore) ListCommitmentsOn(ctx context.Context, date time.Time) ([]Commitment, error) {
	query := `
        SELECT r.id AS response_id, r.user_id, r.username, r.tomorrow_commitment, r.response_date
        FROM standup_responses r
        WHERE r.response_date = ?
          AND r.tomorrow_commitment IS NOT NULL
          AND TRIM(r.tomorrow_commitment) <> '';
    `
	return s.selectCommitments(ctx, "list commitments", query, DateKey(date))
}

func (s *sqlxStore) ListOpenFollowUpsOn(ctx context.Context, date time.Time) ([]Commitment, error) {
	query := `
        SELECT r.id AS response_id, r.user_id, r.username, r.tomorrow_commitment, r.response_date
        FROM standup_responses r
        LEFT JOIN follow_ups f ON f.response_id = r.id
        WHERE r.response_date = ?
          AND r.tomorrow_commitment IS NOT NULL
          AND TRIM(r.tomorrow_commitment) <> ''
          AND (f.id IS NULL OR f.follow_up_sent = 0);
    `
	return s.selectCommitments(ctx, "list open follow-ups", query, DateKey(date))
}

func (s *sqlxStore) selectCommitments(ctx context.Context, op, query, date string) ([]Commitment, error) {
	commitments := []Commitment{}
	if err := s.db.SelectContext(ctx, &commitments, query, date); err != nil {
		s.logger.ErrorContext(ctx, "Query failed", "op", op, "date", date, "error", err)
		return nil, errs.NewDatabaseError(fmt.Sprintf("failed to %s for %s", op, date), err)
	}
	return commitments, nil
}

func (s *sqlxStore) MarkFollowUpSent(ctx context.Context, responseID int64, sentOn time.Time) error {
	err := s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if tx != nil {
				if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}()

		var resp struct {
			UserID       int64  `db:"user_id"`
			ResponseDate string `db:"response_date"`
		}
		err = tx.GetContext(ctx, &resp, `SELECT user_id, response_date FROM standup_responses WHERE id = ?;`, responseID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrResponseNotFound, responseID)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
            INSERT INTO follow_ups (response_id, user_id, commitment_date, follow_up_sent, follow_up_date)
            VALUES (?, ?, ?, 1, ?)
            ON CONFLICT (response_id) DO UPDATE SET
                follow_up_sent = 1,
                follow_up_date = excluded.follow_up_date;
        `, responseID, resp.UserID, resp.ResponseDate, DateKey(sentOn))
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		tx = nil
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark follow-up sent", "response_id", responseID, "error", err)
		return errs.NewDatabaseError(fmt.Sprintf("failed to mark follow-up sent for response %d", responseID), err)
	}

	s.logger.DebugContext(ctx, "Follow-up marked as sent", "response_id", responseID, "sent_on", DateKey(sentOn))
	return nil
}

func (s *sqlxStore) GetFollowUp(ctx context.Context, responseID int64) (*FollowUp, error) {
	var f FollowUp
	err := s.db.GetContext(ctx, &f, `
        SELECT id, response_id, user_id, commitment_date, follow_up_sent, follow_up_date, completion_status
        FROM follow_ups WHERE response_id = ?;
    `, responseID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, errs.NewDatabaseError(fmt.Sprintf("failed to get follow-up for response %d", responseID), err)
	}
	return &f, nil
}

func (s *sqlxStore) GetConfig(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM bot_config WHERE key = ?;`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return def, nil
	case err != nil:
		return "", errs.NewDatabaseError(fmt.Sprintf("failed to get config %q", key), err)
	}
	return value, nil
}

func (s *sqlxStore) SetConfig(ctx context.Context, key, value string) error {
	err := s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
            INSERT INTO bot_config (key, value) VALUES (?, ?)
            ON CONFLICT (key) DO UPDATE SET value = excluded.value;
        `, key, value)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to set config", "key", key, "error", err)
		return errs.NewDatabaseError(fmt.Sprintf("failed to set config %q", key), err)
	}
	s.logger.InfoContext(ctx, "Config updated", "key", key, "value", value)
	return nil
}

func (s *sqlxStore) SetConfigs(ctx context.Context, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if tx != nil {
				if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}()

		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `
            INSERT INTO bot_config (key, value) VALUES (?, ?)
            ON CONFLICT (key) DO UPDATE SET value = excluded.value;
        `, k, values[k]); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		tx = nil
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to set config", "keys", keys, "error", err)
		return errs.NewDatabaseError(fmt.Sprintf("failed to set config %v", keys), err)
	}
	s.logger.InfoContext(ctx, "Config updated", "values", values)
	return nil
}

func (s *sqlxStore) RecentResponsesFor(ctx context.Context, userID int64, limit int) ([]Response, error) {
	if limit <= 0 {
		limit = 5
	} else if limit > 100 {
		limit = 100
	}

	responses := []Response{}
	err := s.db.SelectContext(ctx, &responses, `
        SELECT id, user_id, username, message_id, response_date, today_work, tomorrow_commitment, raw_message, created_at
        FROM standup_responses
        WHERE user_id = ?
        ORDER BY response_date DESC
        LIMIT ?;
    `, userID, limit)
	if err != nil {
		return nil, errs.NewDatabaseError(fmt.Sprintf("failed to get recent responses for user %d", userID), err)
	}
	return responses, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance (VACUUM)")
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return errs.NewDatabaseError("failed to run VACUUM", err)
	}
	return nil
}

// withRetry retries fn with backoff while SQLite reports lock contention.
// Any other error ends the loop immediately.
func (s *sqlxStore) withRetry(ctx context.Context, fn func() error) error {
	var permanent error
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		err := fn()
		if err != nil && !isLockError(err) {
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
