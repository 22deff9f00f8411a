package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func engineContext(w *httptest.ResponseRecorder, method, path, name string) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	c.Params = gin.Params{gin.Param{Key: "name", Value: name}}
	return c
}

type engineStatus struct {
	Phase            string  `json:"phase"`
	Paused           bool    `json:"paused"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Progress         float64 `json:"progress"`
	UnitsRemaining   int     `json:"units_remaining"`
	CurrentUnit      string  `json:"current_unit"`
	NextUnit         string  `json:"next_unit"`
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) engineStatus {
	t.Helper()

	var status engineStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	return status
}

func TestGetEngineStatusUnknownEngine(t *testing.T) {
	api, _, cleanup := setupTestAPI(t)
	defer cleanup()

	w := httptest.NewRecorder()
	c := engineContext(w, http.MethodGet, "/api/engines/ghost", "ghost")

	api.GetEngineStatus(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestStartEngineEntersPreparing(t *testing.T) {
	api, _, cleanup := setupTestAPI(t)
	defer cleanup()

	w := httptest.NewRecorder()
	c := engineContext(w, http.MethodPost, "/api/engines/workout/start", "workout")

	api.StartEngine(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	status := decodeStatus(t, w)
	if status.Phase != "preparing" {
		t.Fatalf("expected phase preparing, got %q", status.Phase)
	}
	if status.UnitsRemaining != 2 {
		t.Fatalf("expected 2 units remaining, got %d", status.UnitsRemaining)
	}
	if status.RemainingSeconds != 5 {
		t.Fatalf("expected 5 seconds remaining, got %d", status.RemainingSeconds)
	}
	if status.NextUnit != "俯卧撑" {
		t.Fatalf("expected next unit 俯卧撑, got %q", status.NextUnit)
	}
}

func TestPauseAndResumeReflectedInStatus(t *testing.T) {
	api, timer, cleanup := setupTestAPI(t)
	defer cleanup()

	w := httptest.NewRecorder()
	api.StartEngine(engineContext(w, http.MethodPost, "/api/engines/workout/start", "workout"))

	w = httptest.NewRecorder()
	c := engineContext(w, http.MethodPost, "/api/engines/workout/pause", "workout")
	api.PauseEngine(c)

	if status := decodeStatus(t, w); !status.Paused {
		t.Fatal("expected paused status after pause")
	}
	if timer.pauses != 1 {
		t.Fatalf("expected 1 pause forwarded to timer, got %d", timer.pauses)
	}

	w = httptest.NewRecorder()
	c = engineContext(w, http.MethodPost, "/api/engines/workout/resume", "workout")
	api.ResumeEngine(c)

	if status := decodeStatus(t, w); status.Paused {
		t.Fatal("expected running status after resume")
	}
}

func TestStopEngineReturnsIdleStatus(t *testing.T) {
	api, _, cleanup := setupTestAPI(t)
	defer cleanup()

	w := httptest.NewRecorder()
	api.StartEngine(engineContext(w, http.MethodPost, "/api/engines/workout/start", "workout"))

	w = httptest.NewRecorder()
	c := engineContext(w, http.MethodPost, "/api/engines/workout/stop", "workout")
	api.StopEngine(c)

	status := decodeStatus(t, w)
	if status.Phase != "idle" {
		t.Fatalf("expected phase idle, got %q", status.Phase)
	}
	if status.Progress != 0 {
		t.Fatalf("expected zero progress after stop, got %f", status.Progress)
	}
}

func TestSkipPrepEntersFirstUnit(t *testing.T) {
	api, _, cleanup := setupTestAPI(t)
	defer cleanup()

	w := httptest.NewRecorder()
	api.StartEngine(engineContext(w, http.MethodPost, "/api/engines/workout/start", "workout"))

	w = httptest.NewRecorder()
	c := engineContext(w, http.MethodPost, "/api/engines/workout/skip-prep", "workout")
	api.SkipPrepPhase(c)

	status := decodeStatus(t, w)
	if status.Phase != "active" {
		t.Fatalf("expected phase active, got %q", status.Phase)
	}
	if status.CurrentUnit != "俯卧撑" {
		t.Fatalf("expected current unit 俯卧撑, got %q", status.CurrentUnit)
	}
}

func TestEngineCompletionRecordsSession(t *testing.T) {
	api, timer, cleanup := setupTestAPI(t)
	defer cleanup()

	w := httptest.NewRecorder()
	api.StartEngine(engineContext(w, http.MethodPost, "/api/engines/workout/start", "workout"))

	// 准备 → 单元0 → 休息 → 单元1 → 完成
	timer.fire()
	timer.fire()
	timer.fire()
	timer.fire()

	w = httptest.NewRecorder()
	c := engineContext(w, http.MethodGet, "/api/engines/workout", "workout")
	api.GetEngineStatus(c)

	if status := decodeStatus(t, w); status.Phase != "completed" {
		t.Fatalf("expected phase completed, got %q", status.Phase)
	}

	tracker := api.trackers["workout"]
	sessions := tracker.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 recorded session, got %d", len(sessions))
	}
	if sessions[0].Category != "workout" || sessions[0].Units != 2 || !sessions[0].Completed {
		t.Fatalf("unexpected recorded session: %+v", sessions[0])
	}
	// 瞬时完成时回退到计划时长：5 + 2×30 + 10 = 75 秒
	if sessions[0].Duration != 75 {
		t.Fatalf("expected planned duration 75s, got %d", sessions[0].Duration)
	}
}
