package database

import (
	"database/sql"
	"time"
)

// DateLayout is the storage format of calendar dates.
const DateLayout = "2006-01-02"

// DateKey formats t as a calendar date in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Response is one user's standup submission for one calendar date.
type Response struct {
	ID                 int64          `db:"id"`
	UserID             int64          `db:"user_id"`
	Username           string         `db:"username"`
	MessageID          int64          `db:"message_id"`
	ResponseDate       string         `db:"response_date"`
	TodayWork          sql.NullString `db:"today_work"`
	TomorrowCommitment sql.NullString `db:"tomorrow_commitment"`
	RawMessage         string         `db:"raw_message"`
	CreatedAt          time.Time      `db:"created_at"`
}

// FollowUp tracks whether a response's commitment has been re-surfaced.
type FollowUp struct {
	ID               int64          `db:"id"`
	ResponseID       int64          `db:"response_id"`
	UserID           int64          `db:"user_id"`
	CommitmentDate   string         `db:"commitment_date"`
	Sent             bool           `db:"follow_up_sent"`
	SentDate         sql.NullString `db:"follow_up_date"`
	CompletionStatus sql.NullString `db:"completion_status"`
}

// Commitment is a response with a non-empty tomorrow commitment.
type Commitment struct {
	ResponseID     int64  `db:"response_id"`
	UserID         int64  `db:"user_id"`
	Username       string `db:"username"`
	Text           string `db:"tomorrow_commitment"`
	CommitmentDate string `db:"response_date"`
}

// Runtime setting keys.
const (
	KeyChannelID = "standup_channel_id"
	KeyTimezone  = "timezone"
	KeyHour      = "standup_hour"
	KeyMinute    = "standup_minute"
)
