package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"github.com/habitloop/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubTimer 记录调度并允许测试手动触发到期。
type stubTimer struct {
	scheduled  []time.Duration
	onComplete func()
	pauses     int
	resumes    int
	stops      int
}

func (s *stubTimer) Schedule(d time.Duration, onTick func(remaining time.Duration), onComplete func()) {
	s.scheduled = append(s.scheduled, d)
	s.onComplete = onComplete
}

func (s *stubTimer) Pause()  { s.pauses++ }
func (s *stubTimer) Resume() { s.resumes++ }
func (s *stubTimer) Stop()   { s.stops++ }

func (s *stubTimer) fire() {
	if s.onComplete != nil {
		s.onComplete()
	}
}

func setupTestAPI(t *testing.T) (*API, *stubTimer, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.StoreEntry{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	tracker, err := service.NewTrackerService(gdb, service.TrackerOptions{
		Prefix:             "workout",
		CaloriesPerSession: 50,
	})
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}

	timer := &stubTimer{}
	eng := engine.New(engine.Config{
		Category:       service.CategoryWorkout,
		PrepDuration:   5 * time.Second,
		ActiveDuration: 30 * time.Second,
		RestDuration:   10 * time.Second,
		Units:          []engine.Unit{{Name: "俯卧撑"}, {Name: "深蹲"}},
	}, timer)

	api := NewAPI(map[string]Pair{
		"workout": {Engine: eng, Tracker: tracker},
	})

	return api, timer, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
