package services

import (
	"context"
	"errors"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/notify"
	"github.com/diewo77/gst-invoices/internal/repository"
)

// ConnectionTester opens and closes an SMTP session with the given settings.
type ConnectionTester interface {
	TestConnection(ctx context.Context, settings models.EmailSettings) error
}

// EmailSettingsService reads and updates the global SMTP configuration.
type EmailSettingsService struct {
	store    *repository.Store
	tester   ConnectionTester
	defaults models.EmailSettings
}

func NewEmailSettingsService(store *repository.Store, tester ConnectionTester, defaults models.EmailSettings) *EmailSettingsService {
	return &EmailSettingsService{store: store, tester: tester, defaults: defaults}
}

// Get returns the active settings, or the configured defaults when none are stored.
func (s *EmailSettingsService) Get(ctx context.Context) (models.EmailSettings, error) {
	active, err := s.store.ActiveEmailSettings(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return notify.Resolve(nil, s.defaults), nil
	}
	if err != nil {
		return models.EmailSettings{}, err
	}
	return *active, nil
}

// Save stores e as the active settings. An empty password keeps the stored one.
func (s *EmailSettingsService) Save(ctx context.Context, e *models.EmailSettings) error {
	e.IsActive = true
	if e.ID == "" {
		active, err := s.store.ActiveEmailSettings(ctx)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if active != nil {
			e.ID = active.ID
		}
	}
	return s.store.SaveEmailSettings(ctx, e)
}

// Test dials the server described by e. Missing credentials are taken from the
// active settings so a form can be tested without retyping the password.
func (s *EmailSettingsService) Test(ctx context.Context, e models.EmailSettings) error {
	if e.SMTPPassword == "" {
		current, err := s.Get(ctx)
		if err != nil {
			return err
		}
		if e.SMTPUser == "" || e.SMTPUser == current.SMTPUser {
			e.SMTPUser = current.SMTPUser
			e.SMTPPassword = current.SMTPPassword
		}
	}
	return s.tester.TestConnection(ctx, e)
}
