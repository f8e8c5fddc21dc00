// Package wizard 实现多步会话式任务向导。
// 每个会话同一时刻最多一个进行中的向导,所有交互都经 Engine.Handle
// 统一分发,传输层只负责把消息和回调搬进来、把 Prompt 渲染出去。
package wizard

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PFEPLTechHub/telegram-task/internal/callback"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// Input 一次入站交互,文本消息或按钮回调二选一
type Input struct {
	// InteractionID 回调的全局唯一 ID,用于吞掉重复投递
	InteractionID string
	Text          string
	Action        *callback.Action
}

// Engine 向导引擎
type Engine struct {
	tasks    service.TaskService
	users    service.UserService
	projects repository.ProjectRepository
	sessions *Store
	log      *logrus.Logger
	now      func() time.Time
}

// NewEngine 创建向导引擎
func NewEngine(tasks service.TaskService, users service.UserService,
	projects repository.ProjectRepository, sessions *Store, log *logrus.Logger) *Engine {
	return &Engine{
		tasks:    tasks,
		users:    users,
		projects: projects,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// Handle 分发一次交互
// 审批按钮不依赖会话,可以在任何时刻按;其余交互路由到
// 会话的当前步骤,没有会话的文本消息被静默忽略。
func (e *Engine) Handle(chatID int64, actor *model.User, in Input) Prompt {
	if in.Action != nil {
		switch in.Action.Kind {
		case callback.KindApproveCreation, callback.KindRejectCreation,
			callback.KindApproveCompletion, callback.KindRejectCompletion:
			return e.handleApproval(actor, *in.Action)
		}
	}

	s := e.sessions.Get(chatID)
	if s == nil {
		if in.Action != nil {
			return noticeOnly("This menu has expired. Send /menu to start over.")
		}
		return silent()
	}
	if in.Action != nil && s.SeenInteraction(in.InteractionID) {
		return silent()
	}

	if in.Action != nil {
		switch in.Action.Kind {
		case callback.KindCancel:
			// 创建向导里 Cancel 是回退一步,其余流程直接退出
			if s.Flow == FlowCreate {
				return e.createBack(s)
			}
			e.sessions.Evict(chatID)
			return Prompt{Text: "Cancelled.", Done: true}
		case callback.KindMainMenu:
			e.sessions.Evict(chatID)
			return Prompt{Text: "Cancelled.", Done: true}
		}
	}

	// 角色能力每次交互解析一次,流程内不再重复判定
	caps := model.CapabilitiesFor(actor.Role)

	switch s.Flow {
	case FlowCreate:
		return e.handleCreate(s, actor, caps, in)
	case FlowComplete:
		return e.handleComplete(s, actor, in)
	}
	return silent()
}
