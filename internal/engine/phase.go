package engine

// PhaseKind 表示一次会话生命周期中的阶段类别。
type PhaseKind int

const (
	// PhaseIdle 表示引擎空闲，没有进行中的会话。
	PhaseIdle PhaseKind = iota
	// PhasePreparing 表示准备倒计时阶段。
	PhasePreparing
	// PhaseActive 表示正在进行某个训练单元。
	PhaseActive
	// PhaseResting 表示某个单元结束后的休息阶段。
	PhaseResting
	// PhaseCompleted 表示全部单元完成，会话自然结束。
	PhaseCompleted
)

// String 返回阶段的 API 友好名称。
func (k PhaseKind) String() string {
	switch k {
	case PhasePreparing:
		return "preparing"
	case PhaseActive:
		return "active"
	case PhaseResting:
		return "resting"
	case PhaseCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Phase 是阶段与单元索引的组合值。
// Unit 仅在 Active/Resting 阶段有意义，其余阶段恒为 0，
// 避免“索引有值但阶段是 Idle”这类不一致。
type Phase struct {
	Kind PhaseKind
	Unit int
}
