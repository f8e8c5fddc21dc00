package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PFEPLTechHub/telegram-task/internal/metrics"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
)

// Flow 向导类别
type Flow int

const (
	FlowCreate Flow = iota
	FlowComplete
)

// Step 向导步骤
type Step int

const (
	StepSelectEmployee Step = iota
	StepDescription
	StepDueDate
	StepClarifyMeridiem
	StepPriority
	StepProject
	StepConfirmCreate
	StepSelectTask
	StepReplyChoice
	StepReplyText
	StepConfirmComplete
)

// seenCap 每会话保留的已处理交互 ID 数量上限
const seenCap = 32

// Session 单个会话的向导状态
// 以 chat ID 为键,同一会话同一时刻只有一个进行中的向导。
type Session struct {
	ChatID    int64
	Flow      Flow
	Step      Step
	UpdatedAt time.Time

	// initial 流程入口步骤,回退到它再退一步才真正退出
	initial Step

	// 创建向导累积的字段
	EmployeeID   uint
	EmployeeName string
	NoPerson     bool
	Description  string
	DueDate      time.Time
	HasDueTime   bool
	// AmbiguousHour 待澄清的原始小时值,仅 StepClarifyMeridiem 期间有意义
	AmbiguousHour int
	Priority      model.Priority
	ProjectID     *uint
	ProjectName   string
	// Editing 从确认页进入修改,捕获后直接回到确认页
	Editing bool

	// 完成向导累积的字段
	TaskID uint
	Reply  string

	seen []string
}

// SeenInteraction 判断交互是否已处理过并记录之
// 同一个回调被重复投递时返回 true,调用方静默吞掉。
func (s *Session) SeenInteraction(id string) bool {
	if id == "" {
		return false
	}
	for _, v := range s.seen {
		if v == id {
			return true
		}
	}
	if len(s.seen) >= seenCap {
		s.seen = s.seen[1:]
	}
	s.seen = append(s.seen, id)
	return false
}

// Store 会话存储
// 提交、取消或超时都会逐出会话,避免被弃置的向导常驻内存。
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	log      *logrus.Logger
}

// NewStore 创建会话存储
func NewStore(ttl time.Duration, log *logrus.Logger) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		log:      log,
	}
}

// Begin 为会话开启新向导,旧向导直接被替换
func (st *Store) Begin(chatID int64, flow Flow, step Step) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &Session{ChatID: chatID, Flow: flow, Step: step, initial: step, UpdatedAt: time.Now()}
	st.sessions[chatID] = s
	metrics.SetWizardSessions(len(st.sessions))
	return s
}

// Get 取出会话的进行中向导,没有则返回 nil
func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	if !ok {
		return nil
	}
	s.UpdatedAt = time.Now()
	return s
}

// Evict 逐出会话
func (st *Store) Evict(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
	metrics.SetWizardSessions(len(st.sessions))
}

// Len 当前活跃向导数
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// StartSweeper 启动超时清理协程,ctx 取消时退出
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.sweep(time.Now())
			}
		}
	}()
}

// sweep 逐出超过 TTL 未活动的向导
func (st *Store) sweep(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for chatID, s := range st.sessions {
		if now.Sub(s.UpdatedAt) > st.ttl {
			delete(st.sessions, chatID)
			st.log.WithField("chat_id", chatID).Debug("wizard session expired")
		}
	}
	metrics.SetWizardSessions(len(st.sessions))
}
