package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func newAccountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:accounts_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func TestResolveCreatesAccountOnFirstContact(t *testing.T) {
	db := newAccountsTestDB(t)
	accounts, err := NewAccounts(AccountsConfig{Database: db})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	identity, err := accounts.Resolve(context.Background(), "user-1", "buyer@example.com")
	if err != nil {
		t.Fatalf("expected resolve to succeed: %v", err)
	}
	if identity.ID != "user-1" || identity.Email != "buyer@example.com" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.IsAdmin {
		t.Fatalf("first contact must not grant admin")
	}

	stored, err := accounts.Lookup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected lookup to succeed: %v", err)
	}
	if stored.Email != "buyer@example.com" {
		t.Fatalf("unexpected stored email %q", stored.Email)
	}
}

func TestResolveRejectsBlankSubject(t *testing.T) {
	db := newAccountsTestDB(t)
	accounts, err := NewAccounts(AccountsConfig{Database: db})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := accounts.Resolve(context.Background(), "   ", "x@example.com"); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("expected invalid subject error, got %v", err)
	}
}

func TestSetAdminFlipsStoredFlag(t *testing.T) {
	db := newAccountsTestDB(t)
	accounts, err := NewAccounts(AccountsConfig{Database: db})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := accounts.Resolve(context.Background(), "user-1", "buyer@example.com"); err != nil {
		t.Fatalf("expected resolve to succeed: %v", err)
	}
	if err := accounts.SetAdmin(context.Background(), "user-1", true); err != nil {
		t.Fatalf("expected promotion to succeed: %v", err)
	}
	identity, err := accounts.Lookup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected lookup to succeed: %v", err)
	}
	if !identity.IsAdmin {
		t.Fatalf("expected stored admin flag to be set")
	}

	if err := accounts.SetAdmin(context.Background(), "user-missing", true); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestResolveLogsFailedRefreshButStillSignsIn(t *testing.T) {
	db := newAccountsTestDB(t)

	core, logs := observer.New(zapcore.DebugLevel)
	accounts, err := NewAccounts(AccountsConfig{Database: db, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := accounts.Resolve(context.Background(), "user-1", "buyer@example.com"); err != nil {
		t.Fatalf("expected first resolve to succeed: %v", err)
	}

	// Reject updates while leaving reads intact, so only the best-effort
	// refresh fails on the second resolve.
	if err := db.Exec(`CREATE TRIGGER block_account_updates BEFORE UPDATE ON accounts
		BEGIN SELECT RAISE(ABORT, 'updates blocked'); END;`).Error; err != nil {
		t.Fatalf("failed to install trigger: %v", err)
	}

	identity, err := accounts.Resolve(context.Background(), "user-1", "buyer@example.com")
	if err != nil {
		t.Fatalf("a failed refresh must not block sign-in: %v", err)
	}
	if identity.ID != "user-1" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	entries := logs.FilterMessage("account refresh failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one refresh warning, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
}
