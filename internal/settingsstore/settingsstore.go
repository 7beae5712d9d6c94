// Package settingsstore exposes typed application state kept in the
// settings table.
package settingsstore

import (
	"errors"
	"time"

	"github.com/mrlokans/roots/internal/database/settings"
	"github.com/mrlokans/roots/internal/entities"
)

// ErrNothingResolved is returned by LastResolved before any record was
// resolved.
var ErrNothingResolved = errors.New("no record has been resolved yet; run the info command first")

// Inbox import outcomes.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

type SettingsStore struct {
	repo *settings.Repository
}

func New(repo *settings.Repository) *SettingsStore {
	return &SettingsStore{repo: repo}
}

// LastResolved returns the record remembered by SetLastResolved.
func (s *SettingsStore) LastResolved() (*entities.Book, error) {
	var book entities.Book
	err := s.repo.GetJSON(entities.SettingKeyLastResolved, &book)
	if errors.Is(err, settings.ErrNotFound) {
		return nil, ErrNothingResolved
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// SetLastResolved remembers book as the most recently resolved record.
func (s *SettingsStore) SetLastResolved(book entities.Book) error {
	return s.repo.SetJSON(entities.SettingKeyLastResolved, book)
}

// InboxStatus represents the outcome of the last scheduled inbox import.
type InboxStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"`  // "success", "partial", "failed", ""
	Message   string     `json:"message,omitempty"` // Error message or stats summary
}

// GetInboxStatus returns the last inbox import status.
func (s *SettingsStore) GetInboxStatus() InboxStatus {
	status := InboxStatus{}

	if setting, err := s.repo.GetSetting(entities.SettingKeyInboxLastAt); err == nil && setting.Value != "" {
		if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastRunAt = &ts
		}
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeyInboxLastStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeyInboxLastMessage); err == nil {
		status.Message = setting.Value
	}

	return status
}

// SetInboxStatus records the outcome of an inbox import run.
func (s *SettingsStore) SetInboxStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.repo.SetSetting(entities.SettingKeyInboxLastAt, now); err != nil {
		return err
	}
	if err := s.repo.SetSetting(entities.SettingKeyInboxLastStatus, status); err != nil {
		return err
	}
	return s.repo.SetSetting(entities.SettingKeyInboxLastMessage, message)
}
