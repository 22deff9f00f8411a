package engine

import "log"

// CueKind 表示阶段切换时触发的提示类别。
type CueKind int

const (
	// CueUnitStart 在进入训练单元时触发。
	CueUnitStart CueKind = iota
	// CueRestStart 在进入休息阶段时触发，强度较轻。
	CueRestStart
	// CueSessionComplete 在会话自然完成时触发。
	CueSessionComplete
)

// String 返回提示类别名称。
func (k CueKind) String() string {
	switch k {
	case CueRestStart:
		return "rest-start"
	case CueSessionComplete:
		return "session-complete"
	default:
		return "unit-start"
	}
}

// Cuer 是声音/震动等提示的抽象，调用方不等待结果。
type Cuer interface {
	Cue(kind CueKind)
}

// LogCuer 把提示写入标准日志，作为服务端的默认实现。
type LogCuer struct{}

// Cue 记录一条提示日志。
func (LogCuer) Cue(kind CueKind) {
	log.Printf("cue: %s", kind)
}
