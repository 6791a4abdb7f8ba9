package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/internal/models"
)

// ListClients returns every client ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.conn(ctx).Order("name ASC").Order("at_site ASC").Find(&clients).Error
	return clients, err
}

// CountClients returns the number of clients.
func (s *Store) CountClients(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Client{}).Count(&n).Error
	return n, err
}

// GetClient loads one client.
func (s *Store) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := s.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// GetClientWithInvoices loads a client and its invoices, newest first.
func (s *Store) GetClientWithInvoices(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := s.conn(ctx).
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("dated DESC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CreateClient inserts c, mapping a (name, site) conflict to ErrDuplicateClient.
func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	if err := s.conn(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateClient
		}
		return err
	}
	return nil
}

// UpdateClient overwrites the editable fields of client id with c.
func (s *Store) UpdateClient(ctx context.Context, id string, c *models.Client) (*models.Client, error) {
	existing, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	if err := s.conn(ctx).Omit("Invoices").Save(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateClient
		}
		return nil, err
	}
	return c, nil
}

// DeleteClient removes a client together with its invoices. Log entries are kept.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Invoice{}, "client_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Client{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
