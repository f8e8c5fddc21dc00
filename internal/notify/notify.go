// Package notify 定义出站消息的传输无关抽象。
// 向导引擎与审批链只依赖这里的接口,具体的 Telegram 发送
// 由 bot 包实现,测试里用内存实现替身。
package notify

// Button 内联按钮,Data 是回调载荷
type Button struct {
	Label string
	Data  string
}

// Message 出站消息,Buttons 按行排列
type Message struct {
	Text    string
	Buttons [][]Button
}

// Notifier 把消息投递到指定会话
// Send 返回 false 表示送达失败(对方不可达或被拉黑),
// 审批链据此回退到下一个候选人。
type Notifier interface {
	Send(chatID int64, msg Message) bool
}

// Row 构造单行按钮
func Row(buttons ...Button) []Button {
	return buttons
}

// Btn 构造按钮
func Btn(label, data string) Button {
	return Button{Label: label, Data: data}
}
