// Package bot 实现 Telegram 长轮询传输层。
// 它只做搬运: 把入站消息和回调交给向导引擎,把引擎返回的
// Prompt 渲染回 Telegram。领域逻辑都在 wizard 与 service 层。
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/PFEPLTechHub/telegram-task/internal/callback"
	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/dateparse"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
	"github.com/PFEPLTechHub/telegram-task/internal/wizard"
)

const menuText = `What would you like to do?

/newtask - create a task
/complete - mark a task completed
/mytasks - list your tasks
/invite - invite a teammate (managers)
/menu - show this menu`

// Bot Telegram 机器人
type Bot struct {
	api         *tgbotapi.BotAPI
	engine      *wizard.Engine
	users       service.UserService
	tasks       service.TaskService
	sender      *Sender
	log         *logrus.Logger
	pollTimeout int
	queues      *chatQueues
}

// New 创建机器人并校验令牌
func New(cfg config.BotConfig, engine *wizard.Engine, users service.UserService,
	tasks service.TaskService, log *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	api.Debug = cfg.Debug

	b := &Bot{
		api:         api,
		engine:      engine,
		users:       users,
		tasks:       tasks,
		sender:      NewSender(api, cfg.RateLimit, log),
		log:         log,
		pollTimeout: cfg.PollTimeout,
	}
	b.queues = newChatQueues(b.dispatch)
	return b, nil
}

// Notifier 返回可注入其它层的出站发送器
func (b *Bot) Notifier() *Sender {
	return b.sender
}

// Run 长轮询循环,ctx 取消时退出
func (b *Bot) Run(ctx context.Context) error {
	b.log.WithField("username", b.api.Self.UserName).Info("bot started")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.queues.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.queues.Wait()
				return nil
			}
			if chatID := updateChatID(update); chatID != 0 {
				b.queues.Enqueue(chatID, update)
			}
		}
	}
}

// dispatch 处理一条更新
// 同一会话的更新由队列保证到达顺序串行执行,向导状态
// 不需要额外的并发保护;不同会话仍然并行。
func (b *Bot) dispatch(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

// updateChatID 提取更新所属的会话 ID
func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// handleMessage 处理入站文本消息
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() && msg.Command() == "start" {
		b.handleStart(msg)
		return
	}

	actor, err := b.users.Identify(msg.From.ID)
	if err != nil {
		b.log.WithError(err).Error("failed to identify user")
		return
	}
	if actor == nil {
		b.reply(chatID, "You are not registered yet. Ask your manager for an invite link.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(chatID, actor, msg)
		return
	}

	prompt := b.engine.Handle(chatID, actor, wizard.Input{Text: msg.Text})
	b.renderPrompt(chatID, prompt)
}

// handleStart /start,可携带邀请令牌
func (b *Bot) handleStart(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	token := strings.TrimSpace(msg.CommandArguments())

	if token == "" {
		actor, err := b.users.Identify(msg.From.ID)
		if err == nil && actor != nil {
			b.reply(chatID, fmt.Sprintf("Welcome back, %s!\n%s", actor.DisplayName(), menuText))
			return
		}
		b.reply(chatID, "Welcome! You need an invite link to register. Ask your manager for one.")
		return
	}

	user, err := b.users.Register(msg.From.ID, msg.From.UserName, msg.From.FirstName, msg.From.LastName, token)
	if err != nil {
		if errors.Is(err, service.ErrInviteInvalid) {
			b.reply(chatID, "This invite link is invalid or has expired.")
			return
		}
		b.log.WithError(err).Error("registration failed")
		b.reply(chatID, "Registration failed. Please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Welcome, %s! You are registered as %s.\n%s",
		user.DisplayName(), user.Role.String(), menuText))
}

// handleCommand 处理已注册用户的命令
func (b *Bot) handleCommand(chatID int64, actor *model.User, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "menu":
		b.reply(chatID, menuText)
	case "newtask":
		b.renderPrompt(chatID, b.engine.StartCreate(chatID, actor))
	case "complete":
		b.renderPrompt(chatID, b.engine.StartComplete(chatID, actor))
	case "mytasks":
		b.reply(chatID, b.renderTaskList(actor))
	case "invite":
		b.handleInvite(chatID, actor, msg.CommandArguments())
	default:
		b.reply(chatID, "Unknown command.\n"+menuText)
	}
}

// handleInvite /invite [employee|manager|admin]
func (b *Bot) handleInvite(chatID int64, actor *model.User, args string) {
	roleArg := strings.ToLower(strings.TrimSpace(args))
	role := model.RoleEmployee
	switch roleArg {
	case "", "employee":
	case "manager":
		role = model.RoleManager
	case "admin":
		role = model.RoleAdmin
	default:
		b.reply(chatID, "Usage: /invite [employee|manager|admin]")
		return
	}

	invite, err := b.users.CreateInvite(actor, role)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	link := fmt.Sprintf("https://t.me/%s?start=%s", b.api.Self.UserName, invite.Token)
	b.reply(chatID, fmt.Sprintf("Invite link for a new %s (valid %d hours):\n%s",
		role.String(), int(service.InviteTTL.Hours()), link))
}

// renderTaskList 渲染 /mytasks 列表
func (b *Bot) renderTaskList(actor *model.User) string {
	tasks, err := b.tasks.ListForEmployee(actor.ID)
	if err != nil {
		b.log.WithError(err).Error("failed to list tasks")
		return "Something went wrong. Please try again."
	}
	if len(tasks) == 0 {
		return "You have no tasks."
	}

	icons := map[model.Status]string{
		model.StatusPendingApproval: "🕓",
		model.StatusPending:         "📌",
		model.StatusOverdue:         "🔴",
		model.StatusCompleted:       "✅",
		model.StatusRejected:        "❌",
	}
	var sb strings.Builder
	sb.WriteString("Your tasks:\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "%s %s\n   Due: %s\n", icons[t.Status], t.Description,
			dateparse.Format(t.DueDate, t.HasDueTime))
	}
	return sb.String()
}

// handleCallback 处理按钮回调
func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	actor, err := b.users.Identify(cq.From.ID)
	if err != nil || actor == nil {
		b.answerCallback(cq.ID, "You are not registered.")
		return
	}

	act := callback.Parse(cq.Data)
	prompt := b.engine.Handle(chatID, actor, wizard.Input{
		InteractionID: cq.ID,
		Action:        &act,
	})

	b.answerCallback(cq.ID, prompt.Notice)
	if prompt.Text == "" {
		return
	}

	// 回调产生的新界面原地编辑,避免向导在会话里刷屏
	edit := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, prompt.Text)
	if len(prompt.Buttons) > 0 {
		markup := buildMarkup(prompt.Buttons)
		edit.ReplyMarkup = &markup
	}
	if _, err := b.api.Send(edit); err != nil {
		// 原消息可能太旧不可编辑,退化为发新消息
		b.renderPrompt(chatID, prompt)
	}
}

// answerCallback 应答回调,消除按钮上的加载态
func (b *Bot) answerCallback(id, text string) {
	cb := tgbotapi.NewCallback(id, text)
	if _, err := b.api.Request(cb); err != nil {
		b.log.WithError(err).Debug("failed to answer callback")
	}
}

// renderPrompt 把引擎返回的 Prompt 发成新消息
func (b *Bot) renderPrompt(chatID int64, prompt wizard.Prompt) {
	if prompt.Text == "" {
		return
	}
	m := tgbotapi.NewMessage(chatID, prompt.Text)
	if len(prompt.Buttons) > 0 {
		m.ReplyMarkup = buildMarkup(prompt.Buttons)
	}
	if _, err := b.api.Send(m); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send prompt")
	}
}

// reply 发送纯文本
func (b *Bot) reply(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(m); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send reply")
	}
}
