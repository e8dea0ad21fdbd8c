// Package standup holds the standup workflow around the store: runtime
// settings, prompt tracking and the processing of replies.
package standup

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/errs"
)

// ConfigStore persists runtime settings.
type ConfigStore interface {
	GetConfig(ctx context.Context, key, def string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
	SetConfigs(ctx context.Context, values map[string]string) error
}

// Snapshot is a consistent view of the runtime settings.
type Snapshot struct {
	ChannelID int64
	Location  *time.Location
	Hour      int
	Minute    int
}

// HasChannel reports whether a standup channel is configured.
func (s Snapshot) HasChannel() bool {
	return s.ChannelID != 0
}

// Settings is the runtime configuration. Every setter persists before it
// updates the in-memory snapshot, so a restart never loses a change.
type Settings struct {
	store    ConfigStore
	defaults config.StandupConfig

	mu      sync.RWMutex
	current Snapshot
}

// NewSettings creates settings seeded with defaults. Call Load to read the
// persisted values.
func NewSettings(store ConfigStore, defaults config.StandupConfig) *Settings {
	loc, err := time.LoadLocation(defaults.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Settings{
		store:    store,
		defaults: defaults,
		current: Snapshot{
			ChannelID: defaults.ChannelID,
			Location:  loc,
			Hour:      defaults.Hour,
			Minute:    defaults.Minute,
		},
	}
}

// Load reads the persisted settings, falling back to the defaults for
// absent keys.
func (s *Settings) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current

	channel, err := s.store.GetConfig(ctx, database.KeyChannelID, strconv.FormatInt(s.defaults.ChannelID, 10))
	if err != nil {
		return snap, err
	}
	if snap.ChannelID, err = strconv.ParseInt(channel, 10, 64); err != nil {
		return snap, errs.NewConfigError(fmt.Sprintf("invalid stored channel id %q", channel), err)
	}

	tz, err := s.store.GetConfig(ctx, database.KeyTimezone, s.defaults.Timezone)
	if err != nil {
		return snap, err
	}
	if snap.Location, err = time.LoadLocation(tz); err != nil {
		return snap, errs.NewConfigError(fmt.Sprintf("invalid stored timezone %q", tz), err)
	}

	if snap.Hour, err = s.loadInt(ctx, database.KeyHour, s.defaults.Hour); err != nil {
		return snap, err
	}
	if snap.Minute, err = s.loadInt(ctx, database.KeyMinute, s.defaults.Minute); err != nil {
		return snap, err
	}
	if err := ValidateTime(snap.Hour, snap.Minute); err != nil {
		return snap, errs.NewConfigError("invalid stored standup time", err)
	}

	s.current = snap
	return snap, nil
}

func (s *Settings) loadInt(ctx context.Context, key string, def int) (int, error) {
	raw, err := s.store.GetConfig(ctx, key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewConfigError(fmt.Sprintf("invalid stored %s %q", key, raw), err)
	}
	return v, nil
}

// Current returns the last loaded or set snapshot.
func (s *Settings) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Location returns the configured timezone.
func (s *Settings) Location() *time.Location {
	return s.Current().Location
}

// SetChannel persists the standup channel.
func (s *Settings) SetChannel(ctx context.Context, channelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetConfig(ctx, database.KeyChannelID, strconv.FormatInt(channelID, 10)); err != nil {
		return err
	}
	s.current.ChannelID = channelID
	return nil
}

// SetTime validates and persists the standup time.
func (s *Settings) SetTime(ctx context.Context, hour, minute int) error {
	if err := ValidateTime(hour, minute); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.SetConfigs(ctx, map[string]string{
		database.KeyHour:   strconv.Itoa(hour),
		database.KeyMinute: strconv.Itoa(minute),
	})
	if err != nil {
		return err
	}
	s.current.Hour = hour
	s.current.Minute = minute
	return nil
}

// SetTimezone validates and persists the timezone name.
func (s *Settings) SetTimezone(ctx context.Context, name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" || name == "Local" {
		return errs.NewValidationError(fmt.Sprintf("unknown timezone %q", name), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetConfig(ctx, database.KeyTimezone, name); err != nil {
		return err
	}
	s.current.Location = loc
	return nil
}

// ValidateTime checks an hour and minute of the day.
func ValidateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return errs.NewValidationError("hour must be between 0 and 23", nil)
	}
	if minute < 0 || minute > 59 {
		return errs.NewValidationError("minute must be between 0 and 59", nil)
	}
	return nil
}
