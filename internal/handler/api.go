package handler

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/engine"
	"github.com/habitloop/internal/service"
)

// Pair binds one lifecycle engine to its aggregate store under a common name.
type Pair struct {
	Engine  *engine.Engine
	Tracker *service.TrackerService
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	engines  map[string]*engine.Engine
	trackers map[string]*service.TrackerService
}

// NewAPI constructs a handler set and wires each engine's completion
// handoff into its tracker.
func NewAPI(pairs map[string]Pair) *API {
	api := &API{
		engines:  make(map[string]*engine.Engine, len(pairs)),
		trackers: make(map[string]*service.TrackerService, len(pairs)),
	}

	for name, pair := range pairs {
		if pair.Engine != nil {
			api.engines[name] = pair.Engine
		}
		if pair.Tracker != nil {
			api.trackers[name] = pair.Tracker
		}
		if pair.Engine != nil && pair.Tracker != nil {
			pair.Engine.SetRecorder(&trackerRecorder{tracker: pair.Tracker})
		}
	}

	return api
}

func (a *API) engineFor(c *gin.Context) (*engine.Engine, bool) {
	eng, ok := a.engines[c.Param("name")]
	if !ok {
		respondError(c, 404, "未知的引擎")
		return nil, false
	}
	return eng, true
}

func (a *API) trackerFor(c *gin.Context) (*service.TrackerService, bool) {
	tracker, ok := a.trackers[c.Param("name")]
	if !ok {
		respondError(c, 404, "未知的记录器")
		return nil, false
	}
	return tracker, true
}

// trackerRecorder 把引擎的完成描述写入聚合存储。
type trackerRecorder struct {
	tracker *service.TrackerService
}

func (r *trackerRecorder) SessionCompleted(completion engine.Completion) {
	duration := int(completion.Elapsed / time.Second)
	if duration <= 0 {
		duration = int(completion.Planned / time.Second)
	}

	startedAt := completion.StartedAt
	if _, err := r.tracker.AddSession(service.AddSessionInput{
		Duration:  duration,
		Category:  completion.Category,
		Units:     completion.Units,
		Completed: true,
		StartDate: &startedAt,
	}); err != nil {
		log.Printf("record completed session: %v", err)
	}
}
