package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/render"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// MaxTemplateSize is the upload limit for template files.
const MaxTemplateSize = 5 << 20

var (
	ErrUnsupportedTemplate = errors.New("only .docx and .html templates are accepted")
	ErrTemplateTooLarge    = errors.New("template file exceeds 5 MB")
)

var templateTypes = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".html": "text/html; charset=utf-8",
}

// TemplateService manages invoice templates and their files.
type TemplateService struct {
	store   *repository.Store
	docs    storage.DocumentStore
	preview render.Renderer
	now     func() time.Time
}

func NewTemplateService(store *repository.Store, docs storage.DocumentStore, preview render.Renderer) *TemplateService {
	return &TemplateService{store: store, docs: docs, preview: preview, now: time.Now}
}

func (s *TemplateService) List(ctx context.Context) ([]models.Template, error) {
	return s.store.ListTemplates(ctx)
}

// Create registers a template record. An active one replaces the current active template.
func (s *TemplateService) Create(ctx context.Context, t *models.Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if t.Version == "" {
		t.Version = "1.0"
	}
	return s.store.CreateTemplate(ctx, t)
}

func (s *TemplateService) Activate(ctx context.Context, id string) error {
	return s.store.SetActiveTemplate(ctx, id)
}

// Upload stores a template file and registers it as an inactive template.
// r is read up to MaxTemplateSize+1 bytes.
func (s *TemplateService) Upload(ctx context.Context, filename, name string, r io.Reader) (*models.Template, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := templateTypes[ext]
	if !ok {
		return nil, ErrUnsupportedTemplate
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxTemplateSize+1))
	if err != nil {
		return nil, fmt.Errorf("read template upload: %w", err)
	}
	if len(data) > MaxTemplateSize {
		return nil, ErrTemplateTooLarge
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	t := &models.Template{ID: uuid.NewString(), Name: name, Version: "1.0"}
	t.FilePath = storage.TemplateKey(t.ID, filename)
	if err := s.docs.Put(ctx, t.FilePath, data, contentType); err != nil {
		return nil, fmt.Errorf("store template file: %w", err)
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		if derr := s.docs.Delete(ctx, t.FilePath); derr != nil {
			err = errors.Join(err, derr)
		}
		return nil, err
	}
	return t, nil
}

// Preview renders sample billing fields with template id.
func (s *TemplateService) Preview(ctx context.Context, id string) (*render.Document, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.preview.Render(ctx, t, render.SampleFields(s.now()))
}

// IsTemplateFile reports whether name has an accepted template extension.
func IsTemplateFile(name string) bool {
	_, ok := templateTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}
