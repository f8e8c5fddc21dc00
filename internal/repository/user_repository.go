package repository

import (
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"gorm.io/gorm"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	Save(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByTelegramID(telegramID int64) (*model.User, error)
	FindAll() ([]*model.User, error)
	FindManagers() ([]*model.User, error)
	FindEmployeesByManager(managerID uint) ([]*model.User, error)
	FindAssignable() ([]*model.User, error)
	EnsureNoPerson() (*model.User, error)
	CreateInvite(invite *model.Invite) error
	FindInvite(token string) (*model.Invite, error)
	ConsumeInvite(token string, userID uint) error
}

// userRepository 用户仓储实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Save 保存用户
func (r *userRepository) Save(user *model.User) error {
	return r.db.Save(user).Error
}

// FindByID 根据 ID 查找用户
func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByTelegramID 根据 Telegram 会话 ID 查找用户
func (r *userRepository) FindByTelegramID(telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAll 查找所有用户
func (r *userRepository) FindAll() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("first_name ASC").Find(&users).Error
	return users, err
}

// FindManagers 查找全部经理,按名字排序保证回退链顺序稳定
func (r *userRepository) FindManagers() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Where("role = ?", model.RoleManager).
		Order("first_name ASC").Find(&users).Error
	return users, err
}

// FindEmployeesByManager 查找某经理的直属下属
func (r *userRepository) FindEmployeesByManager(managerID uint) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Where("manager_id = ?", managerID).
		Order("first_name ASC").Find(&users).Error
	return users, err
}

// FindAssignable 查找可被指派任务的用户,占位用户排在列表之外
func (r *userRepository) FindAssignable() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Where("username <> ?", model.NoPersonUsername).
		Order("first_name ASC").Find(&users).Error
	return users, err
}

// EnsureNoPerson 确保占位用户存在并返回它
// 指派给"无人"的任务挂在这个用户下,提醒与审批都会跳过它。
func (r *userRepository) EnsureNoPerson() (*model.User, error) {
	user := model.User{
		Username:  model.NoPersonUsername,
		FirstName: "No",
		LastName:  "Person",
		Role:      model.RoleEmployee,
	}
	err := r.db.Where("username = ?", model.NoPersonUsername).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateInvite 保存邀请记录
func (r *userRepository) CreateInvite(invite *model.Invite) error {
	return r.db.Create(invite).Error
}

// FindInvite 根据令牌查找邀请
func (r *userRepository) FindInvite(token string) (*model.Invite, error) {
	var invite model.Invite
	if err := r.db.Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// ConsumeInvite 标记邀请已被使用
func (r *userRepository) ConsumeInvite(token string, userID uint) error {
	return r.db.Model(&model.Invite{}).
		Where("token = ? AND used_by IS NULL", token).
		Update("used_by", userID).Error
}
