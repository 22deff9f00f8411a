package engine

import (
	"sync"
	"time"
)

// Unit 表示会话中的一个可重复计时单元（循环变体中的动作，或专注变体中的专注区间）。
type Unit struct {
	Name string `json:"name"`
}

// Config 描述一次会话的全部配置，构造后在引擎生命周期内不可变。
// CycleLength > 0 时启用周期变体：每完成 CycleLength 个单元后的休息
// 使用 LongRestDuration 替代 RestDuration。
type Config struct {
	Category         string
	PrepDuration     time.Duration
	ActiveDuration   time.Duration
	RestDuration     time.Duration
	LongRestDuration time.Duration
	CycleLength      int
	Units            []Unit
}

// Completion 是引擎自然完成时交给记录方的会话描述。
// Elapsed 为真实经过时间，Planned 为按配置计算的计划总时长。
type Completion struct {
	Category  string
	Units     int
	StartedAt time.Time
	Elapsed   time.Duration
	Planned   time.Duration
}

// Recorder 在会话自然完成后接收描述，通常由聚合存储实现。
// 引擎保证回调发生在阶段已切换为 Completed 之后。
type Recorder interface {
	SessionCompleted(completion Completion)
}

// Engine 驱动单次会话的阶段状态机：准备、单元、休息、完成。
// 所有非法调用（阶段不符、重复暂停等）都是静默空操作，不返回错误，
// 下游依赖这一行为。
type Engine struct {
	mu        sync.Mutex
	config    Config
	timer     Timer
	cuer      Cuer
	recorder  Recorder
	phase     Phase
	remaining time.Duration
	paused    bool
	startedAt time.Time
}

// New 创建引擎。timer 为必需依赖，测试中注入手动推进的实现。
func New(config Config, timer Timer) *Engine {
	return &Engine{config: config, timer: timer}
}

// SetCuer 注入提示端口，应在 Start 之前完成。
func (e *Engine) SetCuer(cuer Cuer) {
	e.mu.Lock()
	e.cuer = cuer
	e.mu.Unlock()
}

// SetRecorder 注入完成记录方，应在 Start 之前完成。
func (e *Engine) SetRecorder(recorder Recorder) {
	e.mu.Lock()
	e.recorder = recorder
	e.mu.Unlock()
}

// Start 从 Idle（或 Completed，视为重新开始）进入 Preparing。
// 会话进行中调用是空操作。
func (e *Engine) Start() {
	e.mu.Lock()
	if e.phase.Kind != PhaseIdle && e.phase.Kind != PhaseCompleted {
		e.mu.Unlock()
		return
	}
	e.phase = Phase{Kind: PhasePreparing}
	e.remaining = e.config.PrepDuration
	e.paused = false
	e.startedAt = time.Now()
	d := e.config.PrepDuration
	e.mu.Unlock()

	e.timer.Schedule(d, e.handleTick, e.handleComplete)
}

// Pause 暂停倒计时。Idle 时或已暂停时是空操作，端口只会被转发一次。
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.phase.Kind == PhaseIdle || e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = true
	e.mu.Unlock()

	e.timer.Pause()
}

// Resume 与 Pause 对称，未处于暂停状态时是空操作。
func (e *Engine) Resume() {
	e.mu.Lock()
	if !e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = false
	e.mu.Unlock()

	e.timer.Resume()
}

// Stop 从任何阶段强制回到 Idle，同步生效：返回时阶段一定是 Idle，
// 单元索引、剩余时间与暂停标记全部清空。
func (e *Engine) Stop() {
	e.mu.Lock()
	e.phase = Phase{Kind: PhaseIdle}
	e.remaining = 0
	e.paused = false
	e.startedAt = time.Time{}
	e.mu.Unlock()

	e.timer.Stop()
}

// Reset 等价于 Stop，回到全新的 Idle 状态。
func (e *Engine) Reset() {
	e.Stop()
}

// SkipPrep 跳过准备阶段，仅在 Preparing 时有效，直接进入第一个单元；
// 单元列表为空时与准备自然到期一致，直接完成会话。
func (e *Engine) SkipPrep() {
	e.mu.Lock()
	if e.phase.Kind != PhasePreparing {
		e.mu.Unlock()
		return
	}
	if len(e.config.Units) == 0 {
		completion := e.completeLocked()
		e.paused = false
		recorder := e.recorder
		e.mu.Unlock()

		e.timer.Stop()
		e.cue(CueSessionComplete)
		if recorder != nil {
			recorder.SessionCompleted(*completion)
		}
		return
	}
	e.phase = Phase{Kind: PhaseActive, Unit: 0}
	e.remaining = e.config.ActiveDuration
	e.paused = false
	d := e.config.ActiveDuration
	e.mu.Unlock()

	e.timer.Schedule(d, e.handleTick, e.handleComplete)
	e.cue(CueUnitStart)
}

// SkipRest 跳过当前休息，仅在 Resting 时有效，直接进入下一个单元。
func (e *Engine) SkipRest() {
	e.mu.Lock()
	if e.phase.Kind != PhaseResting {
		e.mu.Unlock()
		return
	}
	e.phase = Phase{Kind: PhaseActive, Unit: e.phase.Unit + 1}
	e.remaining = e.config.ActiveDuration
	e.paused = false
	d := e.config.ActiveDuration
	e.mu.Unlock()

	e.timer.Schedule(d, e.handleTick, e.handleComplete)
	e.cue(CueUnitStart)
}

// handleTick 由计时器端口回调，仅更新可观测的剩余时间，不触发阶段切换。
func (e *Engine) handleTick(remaining time.Duration) {
	e.mu.Lock()
	if e.phase.Kind == PhaseIdle || e.phase.Kind == PhaseCompleted {
		e.mu.Unlock()
		return
	}
	e.remaining = remaining
	e.mu.Unlock()
}

// handleComplete 由计时器端口在一段倒计时到期时回调，推进阶段。
func (e *Engine) handleComplete() {
	e.mu.Lock()

	var (
		next       time.Duration
		schedule   bool
		kind       CueKind
		cueEntry   bool
		completion *Completion
	)

	switch e.phase.Kind {
	case PhasePreparing:
		if len(e.config.Units) == 0 {
			completion = e.completeLocked()
		} else {
			e.phase = Phase{Kind: PhaseActive, Unit: 0}
			e.remaining = e.config.ActiveDuration
			next, schedule = e.config.ActiveDuration, true
			kind, cueEntry = CueUnitStart, true
		}
	case PhaseActive:
		index := e.phase.Unit
		if index >= len(e.config.Units)-1 {
			completion = e.completeLocked()
		} else {
			rest := e.restDurationLocked(index)
			e.phase = Phase{Kind: PhaseResting, Unit: index}
			e.remaining = rest
			next, schedule = rest, true
			kind, cueEntry = CueRestStart, true
		}
	case PhaseResting:
		index := e.phase.Unit
		e.phase = Phase{Kind: PhaseActive, Unit: index + 1}
		e.remaining = e.config.ActiveDuration
		next, schedule = e.config.ActiveDuration, true
		kind, cueEntry = CueUnitStart, true
	default:
		// Idle/Completed 下的迟到回调直接丢弃
		e.mu.Unlock()
		return
	}

	recorder := e.recorder
	e.mu.Unlock()

	if schedule {
		e.timer.Schedule(next, e.handleTick, e.handleComplete)
	}
	if cueEntry {
		e.cue(kind)
	}
	if completion != nil {
		// 阶段切换已提交，先提示后交给记录方
		e.cue(CueSessionComplete)
		if recorder != nil {
			recorder.SessionCompleted(*completion)
		}
	}
}

func (e *Engine) completeLocked() *Completion {
	e.phase = Phase{Kind: PhaseCompleted}
	e.remaining = 0
	return &Completion{
		Category:  e.config.Category,
		Units:     len(e.config.Units),
		StartedAt: e.startedAt,
		Elapsed:   time.Since(e.startedAt),
		Planned:   e.plannedTotalLocked(),
	}
}

// restDurationLocked 返回第 index 个单元之后的休息时长。
func (e *Engine) restDurationLocked(index int) time.Duration {
	if e.config.CycleLength > 0 && e.config.LongRestDuration > 0 && (index+1)%e.config.CycleLength == 0 {
		return e.config.LongRestDuration
	}
	return e.config.RestDuration
}

// cue 以尽力而为的方式触发提示，任何失败都不影响阶段流转。
func (e *Engine) cue(kind CueKind) {
	e.mu.Lock()
	cuer := e.cuer
	e.mu.Unlock()
	if cuer == nil {
		return
	}

	defer func() { _ = recover() }()
	cuer.Cue(kind)
}

// Phase 返回当前阶段。
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Remaining 返回当前阶段的剩余时间。
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Paused 返回暂停标记。
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Config 返回引擎配置（构造后不可变）。
func (e *Engine) Config() Config {
	return e.config
}

// TotalDuration 按配置计算会话总时长：prep + n×active + (n−1)×rest。
// 该值来源于配置而非实际经过的时间。
func (e *Engine) TotalDuration() time.Duration {
	n := len(e.config.Units)
	total := e.config.PrepDuration + time.Duration(n)*e.config.ActiveDuration
	if n > 1 {
		total += time.Duration(n-1) * e.config.RestDuration
	}
	return total
}

// Progress 返回 [0,1] 的进度：Idle 为 0，Completed 为 1，
// 其余按已消耗的计划时长与计划总时长之比。
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase.Kind {
	case PhaseIdle:
		return 0
	case PhaseCompleted:
		return 1
	}

	total := e.plannedTotalLocked()
	if total <= 0 {
		return 1
	}

	progress := float64(total-e.remainingPlannedLocked()) / float64(total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// UnitsRemaining 返回尚未进入的单元数，Idle 时为 0。
func (e *Engine) UnitsRemaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.config.Units)
	switch e.phase.Kind {
	case PhasePreparing:
		return n
	case PhaseActive, PhaseResting:
		// 第 Unit 个单元已进入，无论正在训练还是休息
		return n - e.phase.Unit - 1
	default:
		return 0
	}
}

// CurrentUnit 返回当前单元：Active/Resting 时为对应索引的单元，其余为 nil。
func (e *Engine) CurrentUnit() *Unit {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase.Kind {
	case PhaseActive, PhaseResting:
		if e.phase.Unit >= len(e.config.Units) {
			return nil
		}
		unit := e.config.Units[e.phase.Unit]
		return &unit
	default:
		return nil
	}
}

// NextUnit 返回接下来要进入的单元：Preparing 时为第一个单元，
// Active/Resting 时为下一个，Idle/Completed 时为 nil。
func (e *Engine) NextUnit() *Unit {
	e.mu.Lock()
	defer e.mu.Unlock()

	var index int
	switch e.phase.Kind {
	case PhasePreparing:
		index = 0
	case PhaseActive, PhaseResting:
		index = e.phase.Unit + 1
	default:
		return nil
	}

	if index >= len(e.config.Units) {
		return nil
	}
	unit := e.config.Units[index]
	return &unit
}

// SessionStartedAt 返回本次会话的开始时间，Start 之前为 nil。
func (e *Engine) SessionStartedAt() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.startedAt.IsZero() {
		return nil
	}
	startedAt := e.startedAt
	return &startedAt
}

// ElapsedSinceStart 返回自 Start 以来的真实经过时间，未开始时为 0。
func (e *Engine) ElapsedSinceStart() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.startedAt.IsZero() {
		return 0
	}
	return time.Since(e.startedAt)
}

// plannedTotalLocked 与 remainingPlannedLocked 使用一致的休息时长计算，
// 周期变体的长休息会同时体现在两侧，保证进度单调。
func (e *Engine) plannedTotalLocked() time.Duration {
	n := len(e.config.Units)
	total := e.config.PrepDuration + time.Duration(n)*e.config.ActiveDuration
	for i := 0; i < n-1; i++ {
		total += e.restDurationLocked(i)
	}
	return total
}

func (e *Engine) remainingPlannedLocked() time.Duration {
	n := len(e.config.Units)
	remaining := e.remaining

	switch e.phase.Kind {
	case PhasePreparing:
		remaining += time.Duration(n) * e.config.ActiveDuration
		for i := 0; i < n-1; i++ {
			remaining += e.restDurationLocked(i)
		}
	case PhaseActive:
		index := e.phase.Unit
		remaining += time.Duration(n-1-index) * e.config.ActiveDuration
		for i := index; i < n-1; i++ {
			remaining += e.restDurationLocked(i)
		}
	case PhaseResting:
		index := e.phase.Unit
		remaining += time.Duration(n-1-index) * e.config.ActiveDuration
		for i := index + 1; i < n-1; i++ {
			remaining += e.restDurationLocked(i)
		}
	}

	return remaining
}
