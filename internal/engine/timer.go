package engine

import (
	"sync"
	"time"
)

// Timer 是倒计时端口。Schedule 启动一段倒计时，期间周期性回调 onTick，
// 到期时恰好回调一次 onComplete（除非 Pause/Stop 介入）。
// 实现必须可替换，测试里使用手动推进的假计时器。
type Timer interface {
	Schedule(d time.Duration, onTick func(remaining time.Duration), onComplete func())
	Pause()
	Resume()
	Stop()
}

// TickerTimer 是基于 time.Ticker 的真实计时器实现。
type TickerTimer struct {
	mu         sync.Mutex
	interval   time.Duration
	remaining  time.Duration
	paused     bool
	onTick     func(time.Duration)
	onComplete func()
	stopCh     chan struct{}
}

// NewTickerTimer 创建计时器，interval 不合法时回退为 1 秒。
func NewTickerTimer(interval time.Duration) *TickerTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickerTimer{interval: interval}
}

// Schedule 取消上一段倒计时并开始新的一段。
func (t *TickerTimer) Schedule(d time.Duration, onTick func(remaining time.Duration), onComplete func()) {
	t.mu.Lock()
	if t.stopCh != nil {
		close(t.stopCh)
	}
	t.stopCh = make(chan struct{})
	t.remaining = d
	t.paused = false
	t.onTick = onTick
	t.onComplete = onComplete
	stop := t.stopCh
	t.mu.Unlock()

	if d <= 0 {
		// 零时长直接视为到期
		go func() {
			if onComplete != nil {
				onComplete()
			}
		}()
		return
	}

	go t.run(stop)
}

// Pause 冻结剩余时间，暂停期间不产生回调。
func (t *TickerTimer) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

// Resume 恢复倒计时。
func (t *TickerTimer) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
}

// Stop 终止当前倒计时，不再产生任何回调。
func (t *TickerTimer) Stop() {
	t.mu.Lock()
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
	t.onTick = nil
	t.onComplete = nil
	t.mu.Unlock()
}

func (t *TickerTimer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.stopCh != stop {
				// 已被新的 Schedule 取代
				t.mu.Unlock()
				return
			}
			if t.paused {
				t.mu.Unlock()
				continue
			}
			t.remaining -= t.interval
			remaining := t.remaining
			onTick := t.onTick
			onComplete := t.onComplete
			t.mu.Unlock()

			if remaining <= 0 {
				if onComplete != nil {
					onComplete()
				}
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
		}
	}
}
