// Package numbering allocates invoice numbers of the form INV-YYYY-NNNN.
//
// The sequence restarts every calendar year and continues from the highest number
// already stored for that year. Uniqueness is finally enforced by the invoices
// unique index; Allocate serializes generation and insertion within the process so
// a single run never produces the same number twice.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix is prepended to every number.
const DefaultPrefix = "INV"

// DefaultWidth is the zero padding of the sequence part.
const DefaultWidth = 4

// Source finds the highest stored number starting with a prefix ("" when none).
type Source interface {
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

// Sequential generates per-year sequential numbers.
type Sequential struct {
	src    Source
	prefix string
	width  int
	mu     sync.Mutex
}

// NewSequential returns a generator reading existing numbers from src.
func NewSequential(src Source) *Sequential {
	return &Sequential{src: src, prefix: DefaultPrefix, width: DefaultWidth}
}

// YearPrefix returns the prefix shared by all numbers of year, e.g. "INV-2025-".
func (g *Sequential) YearPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", g.prefix, year)
}

// Format builds the number for year and sequence value n.
func (g *Sequential) Format(year, n int) string {
	return fmt.Sprintf("%s%0*d", g.YearPrefix(year), g.width, n)
}

// Next returns the number following the last one stored for the year of at.
// Callers that insert the number afterwards should use Allocate instead.
func (g *Sequential) Next(ctx context.Context, at time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next(ctx, at)
}

// Allocate computes the next number and hands it to create while holding the
// generator lock, so concurrent callers in this process never race on a value.
func (g *Sequential) Allocate(ctx context.Context, at time.Time, create func(number string) error) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	number, err := g.next(ctx, at)
	if err != nil {
		return "", err
	}
	if err := create(number); err != nil {
		return number, err
	}
	return number, nil
}

func (g *Sequential) next(ctx context.Context, at time.Time) (string, error) {
	year := at.Year()
	prefix := g.YearPrefix(year)
	last, err := g.src.LastNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("read last invoice number: %w", err)
	}
	seq, err := ParseSequence(prefix, last)
	if err != nil {
		return "", err
	}
	return g.Format(year, seq+1), nil
}

// ParseSequence extracts the numeric part of number after prefix. An empty number is 0.
func ParseSequence(prefix, number string) (int, error) {
	if number == "" {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok {
		return 0, fmt.Errorf("invoice number %q does not start with %q", number, prefix)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invoice number %q has a malformed sequence", number)
	}
	return n, nil
}
