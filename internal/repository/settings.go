package repository

import (
	"context"
	"time"

	"github.com/diewo77/gst-invoices/internal/models"
)

// ListTemplates returns all templates, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	err := s.conn(ctx).Order("created_at DESC").Find(&templates).Error
	return templates, err
}

// GetTemplate loads one template.
func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	if err := s.conn(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ActiveTemplate returns the active template, or ErrNotFound when none is active.
func (s *Store) ActiveTemplate(ctx context.Context) (*models.Template, error) {
	var t models.Template
	if err := s.conn(ctx).Where("is_active = ?", true).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// CreateTemplate inserts t. An active template deactivates the others.
func (s *Store) CreateTemplate(ctx context.Context, t *models.Template) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if t.IsActive {
			if err := tx.db.Model(&models.Template{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.db.Create(t).Error
	})
}

// SetActiveTemplate deactivates every template then activates id.
func (s *Store) SetActiveTemplate(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Model(&models.Template{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.db.Model(&models.Template{}).Where("id = ?", id).Update("is_active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetEmailSettings returns the most recently updated settings row, active or not.
func (s *Store) GetEmailSettings(ctx context.Context) (*models.EmailSettings, error) {
	var e models.EmailSettings
	if err := s.conn(ctx).Order("updated_at DESC").First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ActiveEmailSettings returns the active settings, or ErrNotFound.
func (s *Store) ActiveEmailSettings(ctx context.Context) (*models.EmailSettings, error) {
	var e models.EmailSettings
	if err := s.conn(ctx).Where("is_active = ?", true).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// SaveEmailSettings creates or updates e. When e is active every other row is deactivated.
func (s *Store) SaveEmailSettings(ctx context.Context, e *models.EmailSettings) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if e.IsActive {
			q := tx.db.Model(&models.EmailSettings{}).Where("is_active = ?", true)
			if e.ID != "" {
				q = q.Where("id <> ?", e.ID)
			}
			if err := q.Update("is_active", false).Error; err != nil {
				return err
			}
		}
		if e.ID == "" {
			return tx.db.Create(e).Error
		}
		var existing models.EmailSettings
		if err := tx.db.First(&existing, "id = ?", e.ID).Error; err != nil {
			return notFound(err)
		}
		e.CreatedAt = existing.CreatedAt
		if e.SMTPPassword == "" {
			e.SMTPPassword = existing.SMTPPassword
		}
		return tx.db.Save(e).Error
	})
}

// GetOperator loads an operator by username.
func (s *Store) GetOperator(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	if err := s.conn(ctx).Where("username = ?", username).First(&op).Error; err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

// OperatorExists reports whether id refers to an existing operator.
func (s *Store) OperatorExists(ctx context.Context, id uint) bool {
	var count int64
	if err := s.conn(ctx).Model(&models.Operator{}).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// TouchOperatorLogin records a successful login time.
func (s *Store) TouchOperatorLogin(ctx context.Context, op *models.Operator) error {
	now := time.Now()
	if err := s.conn(ctx).Model(op).Update("last_login", now).Error; err != nil {
		return err
	}
	op.LastLogin = &now
	return nil
}
