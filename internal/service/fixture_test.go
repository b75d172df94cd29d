package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/attendance-session-service/internal/database"
	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/notify"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type fixture struct {
	db         *gorm.DB
	clock      *fakeClock
	notifier   *recordingNotifier
	sessions   repository.AttendanceRepository
	users      repository.UserRepository
	audits     repository.AuditRepository
	cacheStore *InMemoryReportCacheStore
	attendance *AttendanceService
	reports    *ReportService
	leaves     *LeaveService
}

var march1At9 = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		db:         db,
		clock:      newFakeClock(march1At9),
		notifier:   &recordingNotifier{},
		sessions:   repository.NewAttendanceRepository(db),
		users:      repository.NewUserRepository(db),
		audits:     repository.NewAuditRepository(db),
		cacheStore: NewInMemoryReportCacheStore(),
	}
	cache := NewReportCache(f.cacheStore, time.Minute, log)
	audit := NewAuditRecorder(f.audits, f.clock, log)
	f.attendance = NewAttendanceService(f.sessions, f.users, cache, f.notifier, audit, f.clock, AttendancePolicy{MaxDuration: 9 * time.Hour}, log)
	f.reports = NewReportService(f.sessions, f.users, cache, audit, f.clock, time.UTC, log)
	f.leaves = NewLeaveService(repository.NewLeaveRepository(db), audit, f.notifier, log)
	return f
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) Actor {
	t.Helper()
	u := &domain.User{Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return Actor{UserID: u.ID, Role: role}
}

// session checks actor in at in and, when out is non-zero, out at out.
func (f *fixture) session(t *testing.T, actor Actor, in, out time.Time) *domain.AttendanceSession {
	t.Helper()
	ctx := context.Background()
	f.clock.Set(in)
	s, err := f.attendance.CheckIn(ctx, actor, CheckInInput{})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if out.IsZero() {
		return s
	}
	f.clock.Set(out)
	closed, err := f.attendance.CheckOut(ctx, actor)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	return closed
}

func (f *fixture) countSessions(t *testing.T, userID domain.UserID) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&domain.AttendanceSession{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func repositoryFilterForUser(id domain.UserID) repository.AttendanceFilter {
	return repository.AttendanceFilter{UserID: &id}
}
