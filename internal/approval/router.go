// Package approval 实现任务创建与完成的审批路由。
package approval

import (
	"github.com/PFEPLTechHub/telegram-task/internal/model"
)

// Outcome 审批链路由结果的类别
type Outcome int

const (
	// OutcomeNotified 已有审批人收到通知,等待其裁决
	OutcomeNotified Outcome = iota
	// OutcomeAutoApproved 无可达审批人,任务自动通过
	OutcomeAutoApproved
)

// ChainResult 审批链的解析结果
// Outcome 为 OutcomeNotified 时 ApproverChatID 指向收到请求的审批人。
type ChainResult struct {
	Outcome        Outcome
	ApproverChatID int64
}

// Sender 把审批请求投递到某个会话,返回是否送达
type Sender func(chatID int64) bool

// DecideInitialStatus 依据创建者与执行人的角色关系决定任务初始状态
// 管理员创建、管理者派给下属、或管理者派给自己都直接进入待办,
// 其余情况进入待审批。
func DecideInitialStatus(creator model.Capabilities, targetRole model.Role, selfAssigned bool) model.Status {
	switch {
	case creator.Admin:
		return model.StatusPending
	case creator.Manager && targetRole == model.RoleEmployee:
		return model.StatusPending
	case creator.Manager && selfAssigned:
		return model.StatusPending
	default:
		return model.StatusPendingApproval
	}
}

// CompletionBypass 判断完成操作是否无需审批
// 具有管理能力的用户完成自己创建并指派给自己的任务时跳过审批链。
func CompletionBypass(actor model.Capabilities, actorID, employeeID, assignedBy uint) bool {
	return actor.CanAssign() && employeeID == actorID && assignedBy == actorID
}

// ResolveChain 按回退链路由审批请求
// 先尝试可达且非请求人自己的直属经理;失败则依次尝试其余经理,
// 第一个送达成功者胜出;全部失败则自动通过。
func ResolveChain(directManagerChatID, requesterChatID int64, managers []model.User, send Sender) ChainResult {
	if directManagerChatID != 0 && directManagerChatID != requesterChatID {
		if send(directManagerChatID) {
			return ChainResult{Outcome: OutcomeNotified, ApproverChatID: directManagerChatID}
		}
	}
	for _, m := range managers {
		if !m.Reachable() {
			continue
		}
		if m.TelegramID == requesterChatID || m.TelegramID == directManagerChatID {
			continue
		}
		if send(m.TelegramID) {
			return ChainResult{Outcome: OutcomeNotified, ApproverChatID: m.TelegramID}
		}
	}
	return ChainResult{Outcome: OutcomeAutoApproved}
}
