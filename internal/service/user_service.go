package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
)

// ErrInviteInvalid 邀请令牌不存在、已过期或已被使用
var ErrInviteInvalid = errors.New("invite is invalid or expired")

// InviteTTL 邀请令牌有效期
const InviteTTL = 72 * time.Hour

// UserService 用户服务接口
type UserService interface {
	Register(telegramID int64, username, firstName, lastName, inviteToken string) (*model.User, error)
	Identify(telegramID int64) (*model.User, error)
	FindByID(id uint) (*model.User, error)
	CreateInvite(inviter *model.User, role model.Role) (*model.Invite, error)
	ListAssignable() ([]*model.User, error)
	ListTeam(manager *model.User) ([]*model.User, error)
	ListManagers() ([]*model.User, error)
}

// userService 用户服务实现
type userService struct {
	users repository.UserRepository
	log   *logrus.Logger
	now   func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(users repository.UserRepository, log *logrus.Logger) UserService {
	return &userService{users: users, log: log, now: time.Now}
}

// Register 凭邀请令牌注册用户
// 重复注册同一会话只刷新资料,角色以首次注册为准。
func (s *userService) Register(telegramID int64, username, firstName, lastName, inviteToken string) (*model.User, error) {
	if existing, err := s.users.FindByTelegramID(telegramID); err == nil {
		existing.Username = username
		existing.FirstName = firstName
		existing.LastName = lastName
		if err := s.users.Save(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	invite, err := s.users.FindInvite(inviteToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if !invite.Usable(s.now()) {
		return nil, ErrInviteInvalid
	}

	user := &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       invite.Role,
	}
	// 员工挂在发出邀请的经理名下,决定其审批链的第一跳
	if invite.Role == model.RoleEmployee {
		inviterID := invite.InviterID
		user.ManagerID = &inviterID
	}
	if err := s.users.Save(user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	if err := s.users.ConsumeInvite(inviteToken, user.ID); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role.String(),
	}).Info("user registered")
	return user, nil
}

// Identify 根据会话 ID 识别已注册用户
func (s *userService) Identify(telegramID int64) (*model.User, error) {
	user, err := s.users.FindByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// FindByID 按用户 ID 查找
func (s *userService) FindByID(id uint) (*model.User, error) {
	return s.users.FindByID(id)
}

// CreateInvite 签发一次性邀请令牌
func (s *userService) CreateInvite(inviter *model.User, role model.Role) (*model.Invite, error) {
	caps := model.CapabilitiesFor(inviter.Role)
	if !caps.CanAssign() {
		return nil, errors.New("only admins and managers can invite")
	}
	if role == model.RoleAdmin && !caps.Admin {
		return nil, errors.New("only admins can invite admins")
	}

	invite := &model.Invite{
		Token:     uuid.NewString(),
		Role:      role,
		InviterID: inviter.ID,
		ExpiresAt: s.now().Add(InviteTTL),
	}
	if err := s.users.CreateInvite(invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// ListAssignable 列出可被指派任务的用户
func (s *userService) ListAssignable() ([]*model.User, error) {
	return s.users.FindAssignable()
}

// ListTeam 列出经理的团队,管理员看到全员
func (s *userService) ListTeam(manager *model.User) ([]*model.User, error) {
	caps := model.CapabilitiesFor(manager.Role)
	if caps.Admin {
		return s.users.FindAll()
	}
	return s.users.FindEmployeesByManager(manager.ID)
}

// ListManagers 列出全部经理
func (s *userService) ListManagers() ([]*model.User, error) {
	return s.users.FindManagers()
}
