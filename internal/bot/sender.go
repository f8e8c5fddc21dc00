package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/PFEPLTechHub/telegram-task/internal/notify"
)

// Sender 经限速器的出站消息发送器,实现 notify.Notifier
// Telegram 对机器人全局约每秒 30 条消息,超发会被 429。
type Sender struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *logrus.Logger
}

// NewSender 创建发送器,perSecond 为全局出站速率
func NewSender(api *tgbotapi.BotAPI, perSecond float64, log *logrus.Logger) *Sender {
	if perSecond <= 0 {
		perSecond = 25
	}
	return &Sender{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log,
	}
}

// Send 投递一条消息,返回是否送达
// 送达失败通常是对方没开启会话或拉黑了机器人,审批链
// 依赖这个返回值决定是否回退到下一个候选人。
func (s *Sender) Send(chatID int64, msg notify.Message) bool {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return false
	}

	m := tgbotapi.NewMessage(chatID, msg.Text)
	if len(msg.Buttons) > 0 {
		m.ReplyMarkup = buildMarkup(msg.Buttons)
	}
	if _, err := s.api.Send(m); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send message")
		return false
	}
	return true
}

// buildMarkup 把抽象按钮转成 Telegram 内联键盘
func buildMarkup(rows [][]notify.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		keyboard = append(keyboard, line)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
