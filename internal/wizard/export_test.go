package wizard

import "time"

// SetClock 测试用,替换引擎的时间源
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}
