package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/service"
)

type sessionPayload struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Duration  int    `json:"duration"`
	Category  string `json:"category"`
	Units     int    `json:"units,omitempty"`
	Completed bool   `json:"completed"`
	Note      string `json:"note,omitempty"`
	NoteHTML  string `json:"note_html,omitempty"`
}

func sessionToPayload(record service.SessionRecord) sessionPayload {
	noteHTML, err := service.RenderNoteHTML(record.Note)
	if err != nil {
		noteHTML = ""
	}

	return sessionPayload{
		ID:        record.ID,
		Date:      record.Date.Format(time.RFC3339),
		Duration:  record.Duration,
		Category:  record.Category,
		Units:     record.Units,
		Completed: record.Completed,
		Note:      record.Note,
		NoteHTML:  noteHTML,
	}
}

func sessionsToPayload(records []service.SessionRecord) []sessionPayload {
	items := make([]sessionPayload, 0, len(records))
	for _, record := range records {
		items = append(items, sessionToPayload(record))
	}
	return items
}

// ListSessions 返回会话日志，支持 day=YYYY-MM-DD、month=YYYY-MM
// 或 start/end 闭区间过滤，未带参数时返回全部。
func (a *API) ListSessions(c *gin.Context) {
	tracker, ok := a.trackerFor(c)
	if !ok {
		return
	}

	if day, ok := parseDateQuery(c.Query("day")); ok {
		c.JSON(http.StatusOK, gin.H{"sessions": sessionsToPayload(tracker.SessionsOn(day))})
		return
	}

	if monthParam := strings.TrimSpace(c.Query("month")); monthParam != "" {
		month, err := time.ParseInLocation("2006-01", monthParam, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的月份")
			return
		}
		records := tracker.SessionsInMonth(month.Year(), month.Month())
		c.JSON(http.StatusOK, gin.H{"sessions": sessionsToPayload(records)})
		return
	}

	start, hasStart := parseDateQuery(c.Query("start"))
	end, hasEnd := parseDateQuery(c.Query("end"))
	if hasStart && hasEnd {
		// 闭区间，end 取到当天结束
		endOfDay := end.AddDate(0, 0, 1).Add(-time.Second)
		c.JSON(http.StatusOK, gin.H{"sessions": sessionsToPayload(tracker.SessionsBetween(start, endOfDay))})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessionsToPayload(tracker.Sessions())})
}

type createSessionPayload struct {
	Duration  int    `json:"duration"`
	Category  string `json:"category"`
	Units     int    `json:"units"`
	Completed bool   `json:"completed"`
	Note      string `json:"note"`
	StartDate string `json:"start_date"`
}

// CreateSession 手工补记一条会话，start_date 可为 RFC3339 或 YYYY-MM-DD。
func (a *API) CreateSession(c *gin.Context) {
	tracker, ok := a.trackerFor(c)
	if !ok {
		return
	}

	var payload createSessionPayload
	if !bindJSON(c, &payload, "无效的请求参数") {
		return
	}

	input := service.AddSessionInput{
		Duration:  payload.Duration,
		Category:  payload.Category,
		Units:     payload.Units,
		Completed: payload.Completed,
		Note:      payload.Note,
	}

	if trimmed := strings.TrimSpace(payload.StartDate); trimmed != "" {
		startDate, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			startDate, err = time.ParseInLocation(dateFormat, trimmed, time.Local)
		}
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的开始时间")
			return
		}
		input.StartDate = &startDate
	}

	record, err := tracker.AddSession(input)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存会话失败")
		return
	}
	if record == nil {
		respondError(c, http.StatusBadRequest, "时长必须为正数")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": sessionToPayload(*record)})
}

type deleteSessionsPayload struct {
	Indices []int `json:"indices"`
}

// DeleteSessions 按下标删除会话，越界下标被忽略。
func (a *API) DeleteSessions(c *gin.Context) {
	tracker, ok := a.trackerFor(c)
	if !ok {
		return
	}

	var payload deleteSessionsPayload
	if !bindJSON(c, &payload, "无效的请求参数") {
		return
	}

	if err := tracker.DeleteSessions(payload.Indices); err != nil {
		respondError(c, http.StatusInternalServerError, "删除会话失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessionsToPayload(tracker.Sessions())})
}

// GetTrackerStats 返回连续天数与各项汇总统计。
func (a *API) GetTrackerStats(c *gin.Context) {
	tracker, ok := a.trackerFor(c)
	if !ok {
		return
	}

	stats := gin.H{
		"streak":                 tracker.Streak(),
		"total_count":            tracker.TotalCount(),
		"total_duration_minutes": tracker.TotalDurationMinutes(),
		"mean_duration_seconds":  tracker.MeanDuration(),
		"last_7_days":            tracker.CountLast7Days(),
		"last_30_days":           tracker.CountLast30Days(),
		"estimated_calories":     tracker.EstimatedCalories(),
	}
	if day := tracker.LastActiveDay(); day != nil {
		stats["last_active_day"] = day.Format(dateFormat)
	}

	c.JSON(http.StatusOK, stats)
}

// ResetTracker 清空日志与全部统计。
func (a *API) ResetTracker(c *gin.Context) {
	tracker, ok := a.trackerFor(c)
	if !ok {
		return
	}

	if err := tracker.Reset(); err != nil {
		respondError(c, http.StatusInternalServerError, "重置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已重置"})
}
