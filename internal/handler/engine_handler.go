package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/engine"
)

func engineStatusPayload(eng *engine.Engine) gin.H {
	phase := eng.Phase()

	payload := gin.H{
		"phase":                  phase.Kind.String(),
		"paused":                 eng.Paused(),
		"remaining_seconds":      int(eng.Remaining() / time.Second),
		"progress":               eng.Progress(),
		"units_remaining":        eng.UnitsRemaining(),
		"total_duration_seconds": int(eng.TotalDuration() / time.Second),
	}

	switch phase.Kind {
	case engine.PhaseActive, engine.PhaseResting:
		payload["unit_index"] = phase.Unit
	}
	if unit := eng.CurrentUnit(); unit != nil {
		payload["current_unit"] = unit.Name
	}
	if unit := eng.NextUnit(); unit != nil {
		payload["next_unit"] = unit.Name
	}
	if startedAt := eng.SessionStartedAt(); startedAt != nil {
		payload["started_at"] = startedAt.Format(time.RFC3339)
		payload["elapsed_seconds"] = int(eng.ElapsedSinceStart() / time.Second)
	}

	return payload
}

// GetEngineStatus 返回指定引擎的当前阶段与倒计时状态。
func (a *API) GetEngineStatus(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}

// StartEngine 启动一次会话。会话进行中调用没有效果。
func (a *API) StartEngine(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	eng.Start()
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}

// PauseEngine 暂停当前会话。
func (a *API) PauseEngine(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	eng.Pause()
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}

// ResumeEngine 恢复暂停中的会话。
func (a *API) ResumeEngine(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	eng.Resume()
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}

// StopEngine 终止会话并回到空闲状态。
func (a *API) StopEngine(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	eng.Stop()
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}

// SkipPrepPhase 跳过准备阶段。
func (a *API) SkipPrepPhase(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	eng.SkipPrep()
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}

// SkipRestPhase 跳过当前休息。
func (a *API) SkipRestPhase(c *gin.Context) {
	eng, ok := a.engineFor(c)
	if !ok {
		return
	}
	eng.SkipRest()
	c.JSON(http.StatusOK, engineStatusPayload(eng))
}
