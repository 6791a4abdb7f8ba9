package activity

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
)

func setupLog(t *testing.T) (*Log, *repository.Store, *bytes.Buffer) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	store := repository.New(db)
	return New(store, logger.WithField("component", "activity")), store, &buf
}

func TestAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	l, _, buf := setupLog(t)
	inv := &models.Invoice{ID: "inv-1", ClientID: "client-1"}

	if err := l.Append(ctx, Generated(inv, "Invoice generated")); err != nil {
		t.Fatalf("append generated: %v", err)
	}
	if err := l.Append(ctx, Failed(nil, inv, "delivery: smtp down")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := l.Append(ctx, Run(models.ActionMonthlyGenerationCompleted, models.LogStatusPartial, "1 of 2 failed")); err != nil {
		t.Fatalf("append run: %v", err)
	}

	forInv, err := l.ForInvoice(ctx, "inv-1")
	if err != nil || len(forInv) != 2 {
		t.Fatalf("ForInvoice = %d entries, %v", len(forInv), err)
	}
	forClient, err := l.ForClient(ctx, "client-1")
	if err != nil || len(forClient) != 2 {
		t.Fatalf("ForClient = %d entries, %v", len(forClient), err)
	}
	recent, err := l.Recent(ctx, 0)
	if err != nil || len(recent) != 3 {
		t.Fatalf("Recent = %d entries, %v", len(recent), err)
	}

	out := buf.String()
	if !strings.Contains(out, `"action":"failed"`) || !strings.Contains(out, `"level":"warning"`) {
		t.Fatalf("failed entry should be mirrored as a warning: %s", out)
	}
}

func TestInTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	l, store, _ := setupLog(t)
	inv := &models.Invoice{ID: "inv-2", ClientID: "client-2"}

	err := store.Transaction(ctx, func(tx *repository.Store) error {
		if err := l.In(tx).Append(ctx, Sent(inv, "sent")); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatalf("expected transaction error")
	}
	entries, err := l.ForInvoice(ctx, "inv-2")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected rollback to discard the entry, got %d", len(entries))
	}
}

func TestFailedBuilder(t *testing.T) {
	c := &models.Client{ID: "c1"}
	e := Failed(c, nil, "number collision")
	if e.InvoiceID != nil || e.ClientID == nil || *e.ClientID != "c1" {
		t.Fatalf("unexpected refs %+v", e)
	}
	if e.Action != models.ActionFailed || e.Status != models.LogStatusFailed {
		t.Fatalf("unexpected action/status %s/%s", e.Action, e.Status)
	}
}
