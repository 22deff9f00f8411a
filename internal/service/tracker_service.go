package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/habitloop/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// CategoryWorkout 表示一次完整的循环训练。
	CategoryWorkout = "workout"
	// CategoryFocus 表示一个专注区间。
	CategoryFocus = "focus"
	// CategoryShortBreak 表示短休息区间。
	CategoryShortBreak = "short_break"
	// CategoryLongBreak 表示长休息区间。
	CategoryLongBreak = "long_break"
)

// 持久化键名，带版本后缀以便未来格式迁移时共存。
const (
	keySessions      = "sessions.v1"
	keyStreak        = "streak.v1"
	keyLastActiveDay = "last_active_day.v1"
	keyTotalCount    = "total_count.v1"
	keyTotalDuration = "total_duration.v1"

	dayFormat = "2006-01-02"
)

// SessionRecord 是一条已完成会话的记录，创建后不再修改，仅可被显式删除。
type SessionRecord struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Duration  int       `json:"duration"` // 秒
	Category  string    `json:"category"`
	Units     int       `json:"units,omitempty"`
	Completed bool      `json:"completed"`
	Note      string    `json:"note,omitempty"`
}

// AddSessionInput 定义写入会话时的输入对象。
// StartDate 缺省时使用当前时间；提供历史日期可补记，但不会回溯影响连续天数。
type AddSessionInput struct {
	Duration  int // 秒
	Category  string
	Units     int
	Completed bool
	Note      string
	StartDate *time.Time
}

// TrackerOptions 配置一个聚合存储实例。
// Prefix 是持久化键的命名空间；QualifyingCategories 为空表示所有类别都计入总数；
// Now 仅用于测试注入时钟。
type TrackerOptions struct {
	Prefix               string
	QualifyingCategories []string
	CaloriesPerSession   float64
	Now                  func() time.Time
}

// TrackerService 是会话聚合存储：前插的会话日志加四个增量维护的标量
// （连续天数、最近活跃日、合计次数、合计分钟数）。
// 标量在增删时增量更新，不从日志重算，因此部分恢复后两者可能不一致，
// 这是沿用的既有行为。所有写操作由互斥锁串行化（单写者模型）。
type TrackerService struct {
	gdb *gorm.DB

	mu            sync.Mutex
	prefix        string
	qualifying    map[string]struct{}
	calories      float64
	now           func() time.Time
	records       []SessionRecord
	streak        int
	lastActiveDay *time.Time
	totalCount    int
	totalDuration float64 // 分钟
	observers     []func(SessionRecord)
}

// NewTrackerService 构造聚合存储并加载持久化状态。
// 会话日志条目损坏时降级为空日志，但保留标量条目；
// 若最近活跃日既不是今天也不是昨天，连续天数立即归零。
func NewTrackerService(gdb *gorm.DB, opts TrackerOptions) (*TrackerService, error) {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		return nil, errors.New("tracker prefix is required")
	}

	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	var qualifying map[string]struct{}
	if len(opts.QualifyingCategories) > 0 {
		qualifying = make(map[string]struct{}, len(opts.QualifyingCategories))
		for _, category := range opts.QualifyingCategories {
			qualifying[category] = struct{}{}
		}
	}

	s := &TrackerService{
		gdb:        gdb,
		prefix:     prefix,
		qualifying: qualifying,
		calories:   opts.CaloriesPerSession,
		now:        nowFn,
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	if err := s.recalcStreakIfNeeded(); err != nil {
		return nil, err
	}

	return s, nil
}

// Subscribe 注册会话新增事件的观察者，通知为尽力而为。
func (s *TrackerService) Subscribe(fn func(SessionRecord)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// AddSession 构造一条会话记录并插入日志头部，更新连续天数与合计，
// 持久化后通知观察者。时长非正时是静默空操作。
// 连续天数始终按真实的“今天”计算，与记录携带的日期无关。
func (s *TrackerService) AddSession(input AddSessionInput) (*SessionRecord, error) {
	if input.Duration <= 0 {
		return nil, nil
	}

	s.mu.Lock()

	date := s.now()
	if input.StartDate != nil {
		date = *input.StartDate
	}

	record := SessionRecord{
		ID:        uuid.NewString(),
		Date:      date,
		Duration:  input.Duration,
		Category:  strings.TrimSpace(input.Category),
		Units:     input.Units,
		Completed: input.Completed,
		Note:      strings.TrimSpace(input.Note),
	}

	s.records = append([]SessionRecord{record}, s.records...)
	s.bumpStreakLocked()
	if s.qualifiesLocked(record.Category) {
		s.totalCount++
	}
	s.totalDuration += float64(record.Duration) / 60.0

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	observers := append(([]func(SessionRecord))(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		notifyObserver(fn, record)
	}

	return &record, nil
}

// DeleteSessions 删除指定下标的记录并回退其对合计的贡献（下限为 0）。
// 越界下标被忽略，不视为错误。
func (s *TrackerService) DeleteSessions(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[int]struct{}, len(indices))
	for _, index := range indices {
		if index < 0 || index >= len(s.records) {
			continue
		}
		drop[index] = struct{}{}
	}

	if len(drop) > 0 {
		remaining := make([]SessionRecord, 0, len(s.records)-len(drop))
		for i, record := range s.records {
			if _, removed := drop[i]; removed {
				if s.qualifiesLocked(record.Category) {
					s.totalCount--
					if s.totalCount < 0 {
						s.totalCount = 0
					}
				}
				s.totalDuration -= float64(record.Duration) / 60.0
				if s.totalDuration < 0 {
					s.totalDuration = 0
				}
				continue
			}
			remaining = append(remaining, record)
		}
		s.records = remaining
	}

	return s.persistLocked()
}

// Reset 清空日志、连续天数与合计，并移除持久化的最近活跃日标记。
func (s *TrackerService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.streak = 0
	s.lastActiveDay = nil
	s.totalCount = 0
	s.totalDuration = 0

	return s.persistLocked()
}

// Sessions 返回日志的拷贝，最新插入的在最前。
// 补记历史日期时日志不保证按记录自身时间排序。
func (s *TrackerService) Sessions() []SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SessionRecord(nil), s.records...)
}

// SessionsBetween 返回记录时间落在闭区间 [start, end] 内的会话。
func (s *TrackerService) SessionsBetween(start, end time.Time) []SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]SessionRecord, 0)
	for _, record := range s.records {
		if record.Date.Before(start) || record.Date.After(end) {
			continue
		}
		result = append(result, record)
	}
	return result
}

// SessionsOn 返回指定自然日内的会话。
func (s *TrackerService) SessionsOn(day time.Time) []SessionRecord {
	target := normalizeToDate(day)

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]SessionRecord, 0)
	for _, record := range s.records {
		if normalizeToDate(record.Date).Equal(target) {
			result = append(result, record)
		}
	}
	return result
}

// SessionsInMonth 返回指定自然月内的会话。
func (s *TrackerService) SessionsInMonth(year int, month time.Month) []SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]SessionRecord, 0)
	for _, record := range s.records {
		if record.Date.Year() == year && record.Date.Month() == month {
			result = append(result, record)
		}
	}
	return result
}

// CountWithin 按记录时间统计最近 window 内的会话数（非自然周/月边界）。
func (s *TrackerService) CountWithin(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	count := 0
	for _, record := range s.records {
		if !record.Date.Before(cutoff) {
			count++
		}
	}
	return count
}

// CountLast7Days 统计最近 7 天的会话数。
func (s *TrackerService) CountLast7Days() int {
	return s.CountWithin(7 * 24 * time.Hour)
}

// CountLast30Days 统计最近 30 天的会话数。
func (s *TrackerService) CountLast30Days() int {
	return s.CountWithin(30 * 24 * time.Hour)
}

// MeanDuration 返回全部会话的平均时长（秒），日志为空时为 0。
func (s *TrackerService) MeanDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return 0
	}

	sum := 0
	for _, record := range s.records {
		sum += record.Duration
	}
	return float64(sum) / float64(len(s.records))
}

// EstimatedCalories 按合计次数乘以每次的固定常量估算热量，未配置时为 0。
func (s *TrackerService) EstimatedCalories() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.totalCount) * s.calories
}

// Streak 返回当前连续活跃天数。
func (s *TrackerService) Streak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streak
}

// LastActiveDay 返回最近活跃日（日粒度），从未活跃时为 nil。
func (s *TrackerService) LastActiveDay() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastActiveDay == nil {
		return nil
	}
	day := *s.lastActiveDay
	return &day
}

// TotalCount 返回计入习惯的会话总数。
func (s *TrackerService) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCount
}

// TotalDurationMinutes 返回累计分钟数。
func (s *TrackerService) TotalDurationMinutes() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalDuration
}

// bumpStreakLocked 按真实的“今天”更新连续天数：
// 同一天不变；昨天活跃则 +1（下限 1）；其余情况重置为 1。
func (s *TrackerService) bumpStreakLocked() {
	today := normalizeToDate(s.now())

	switch {
	case s.lastActiveDay != nil && s.lastActiveDay.Equal(today):
		return
	case s.lastActiveDay != nil && s.lastActiveDay.Equal(today.AddDate(0, 0, -1)):
		s.streak++
		if s.streak < 1 {
			s.streak = 1
		}
	default:
		s.streak = 1
	}

	day := today
	s.lastActiveDay = &day
}

// recalcStreakIfNeeded 仅在加载时执行：最近活跃日与今天相差超过一天，
// 说明连续记录已经中断，连续天数归零并立即落盘。
func (s *TrackerService) recalcStreakIfNeeded() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastActiveDay == nil {
		return nil
	}

	today := normalizeToDate(s.now())
	if s.lastActiveDay.Equal(today) || s.lastActiveDay.Equal(today.AddDate(0, 0, -1)) {
		return nil
	}

	s.streak = 0
	if err := upsertEntry(s.gdb, s.key(keyStreak), strconv.Itoa(s.streak)); err != nil {
		return fmt.Errorf("persist lapsed streak: %w", err)
	}
	return nil
}

func (s *TrackerService) qualifiesLocked(category string) bool {
	if s.qualifying == nil {
		return true
	}
	_, ok := s.qualifying[category]
	return ok
}

func (s *TrackerService) key(name string) string {
	return fmt.Sprintf("%s.%s", s.prefix, name)
}

// load 读取全部持久化条目。日志与标量相互独立：
// 会话条目无法解析时仅把日志降级为空，标量照常生效。
func (s *TrackerService) load() error {
	keys := []string{
		s.key(keySessions),
		s.key(keyStreak),
		s.key(keyLastActiveDay),
		s.key(keyTotalCount),
		s.key(keyTotalDuration),
	}

	var entries []db.StoreEntry
	if err := s.gdb.Where("key IN ?", keys).Find(&entries).Error; err != nil {
		return fmt.Errorf("load tracker entries: %w", err)
	}

	for _, entry := range entries {
		switch entry.Key {
		case s.key(keySessions):
			var records []SessionRecord
			if err := json.Unmarshal([]byte(entry.Value), &records); err != nil {
				// 日志损坏：降级为空，继续使用标量条目
				s.records = nil
				continue
			}
			s.records = records
		case s.key(keyStreak):
			if value, err := strconv.Atoi(entry.Value); err == nil && value >= 0 {
				s.streak = value
			}
		case s.key(keyLastActiveDay):
			if day, err := time.ParseInLocation(dayFormat, entry.Value, time.Local); err == nil {
				s.lastActiveDay = &day
			}
		case s.key(keyTotalCount):
			if value, err := strconv.Atoi(entry.Value); err == nil && value >= 0 {
				s.totalCount = value
			}
		case s.key(keyTotalDuration):
			if value, err := strconv.ParseFloat(entry.Value, 64); err == nil && value >= 0 {
				s.totalDuration = value
			}
		}
	}

	return nil
}

// persistLocked 在一个事务内写回全部条目。
func (s *TrackerService) persistLocked() error {
	records := s.records
	if records == nil {
		records = []SessionRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	err = s.gdb.Transaction(func(tx *gorm.DB) error {
		if err := upsertEntry(tx, s.key(keySessions), string(payload)); err != nil {
			return err
		}
		if err := upsertEntry(tx, s.key(keyStreak), strconv.Itoa(s.streak)); err != nil {
			return err
		}
		if err := upsertEntry(tx, s.key(keyTotalCount), strconv.Itoa(s.totalCount)); err != nil {
			return err
		}
		if err := upsertEntry(tx, s.key(keyTotalDuration), strconv.FormatFloat(s.totalDuration, 'f', -1, 64)); err != nil {
			return err
		}

		if s.lastActiveDay == nil {
			if err := tx.Where("key = ?", s.key(keyLastActiveDay)).Delete(&db.StoreEntry{}).Error; err != nil {
				return fmt.Errorf("delete entry %s: %w", s.key(keyLastActiveDay), err)
			}
			return nil
		}
		return upsertEntry(tx, s.key(keyLastActiveDay), s.lastActiveDay.Format(dayFormat))
	})
	if err != nil {
		return fmt.Errorf("persist tracker state: %w", err)
	}
	return nil
}

func upsertEntry(tx *gorm.DB, key, value string) error {
	entry := db.StoreEntry{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("upsert entry %s: %w", key, err)
	}
	return nil
}

// notifyObserver 通知单个观察者，panic 不向外传播。
func notifyObserver(fn func(SessionRecord), record SessionRecord) {
	defer func() { _ = recover() }()
	fn(record)
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
