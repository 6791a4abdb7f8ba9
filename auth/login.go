package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
)

// ErrInvalidCredentials covers an unknown username and a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// OperatorStore looks up operators by username.
type OperatorStore interface {
	GetOperator(ctx context.Context, username string) (*models.Operator, error)
	TouchOperatorLogin(ctx context.Context, op *models.Operator) error
}

// Authenticate checks username and password against the stored bcrypt hash.
func Authenticate(ctx context.Context, store OperatorStore, username, password string) (*models.Operator, error) {
	op, err := store.GetOperator(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := store.TouchOperatorLogin(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// HashPassword returns the bcrypt hash stored in OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
