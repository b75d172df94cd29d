package database

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/attendance-session-service/internal/config"
	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

func TestOpenSQLiteMigratesAndEnforcesSingleOpenSession(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "sqlite", DatabaseURL: "file:database_test?mode=memory&cache=shared"}
	db, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	uid := domain.UserID(7)
	first := &domain.AttendanceSession{UserID: uid, OpenUserID: &uid, CheckInTime: time.Now().UTC()}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}
	second := &domain.AttendanceSession{UserID: uid, OpenUserID: &uid, CheckInTime: time.Now().UTC()}
	err = db.Create(second).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key for second open session, got %v", err)
	}

	closed := &domain.AttendanceSession{UserID: uid, CheckInTime: time.Now().UTC()}
	if err := db.Create(closed).Error; err != nil {
		t.Fatalf("closed sessions must not collide on the open index: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DatabaseDriver: "mysql"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
