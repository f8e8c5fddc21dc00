package wizard

import (
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
)

// Prompt 向导对当前会话的渲染结果
// Done 为 true 表示向导已结束,会话已被逐出。
// Notice 是用于回调应答的短提示,不产生新消息。
type Prompt struct {
	Text    string
	Buttons [][]notify.Button
	Done    bool
	Notice  string
}

// notice 仅携带短提示的结果
func noticeOnly(text string) Prompt {
	return Prompt{Notice: text}
}

// silent 无任何输出,重复或无法识别的交互用它吞掉
func silent() Prompt {
	return Prompt{}
}
