package model

import (
	"errors"
	"time"
)

// Role 用户角色,数值仅用于存储,比较逻辑一律走具名方法
type Role int

const (
	RoleAdmin    Role = 0
	RoleManager  Role = 1
	RoleEmployee Role = 2
)

// ValidRole 判断角色取值是否合法
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleManager || r == RoleEmployee
}

// String 返回角色名称
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleEmployee:
		return "employee"
	}
	return "unknown"
}

// Capabilities 一次交互内解析一次的角色能力,避免在分支里反复查库
type Capabilities struct {
	Admin   bool
	Manager bool
}

// CanAssign 是否可以给他人派发任务
func (c Capabilities) CanAssign() bool {
	return c.Admin || c.Manager
}

// CapabilitiesFor 根据角色解析能力
func CapabilitiesFor(r Role) Capabilities {
	return Capabilities{
		Admin:   r == RoleAdmin,
		Manager: r == RoleManager || r == RoleAdmin,
	}
}

// NoPersonUsername "No Person" 哨兵用户的用户名,表示未分配任务桶
const NoPersonUsername = "no_person"

// User 用户数据模型
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TelegramID int64     `gorm:"uniqueIndex" json:"telegram_id"` // 哨兵用户无会话通道,为 0
	Username   string    `gorm:"type:varchar(64)" json:"username"`
	FirstName  string    `gorm:"type:varchar(128)" json:"first_name"`
	LastName   string    `gorm:"type:varchar(128)" json:"last_name"`
	Role       Role      `gorm:"not null;index" json:"role"`
	ManagerID  *uint     `gorm:"index" json:"manager_id,omitempty"` // 员工的直属经理
	Status     string    `gorm:"type:varchar(16);not null;default:active" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (u *User) Validate() error {
	if !ValidRole(u.Role) {
		return errors.New("invalid user role")
	}
	return nil
}

// DisplayName 返回展示名称,优先名字,其次用户名
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}

// Reachable 判断是否有可投递的会话通道
func (u *User) Reachable() bool {
	return u.TelegramID != 0
}

// IsNoPerson 判断是否为未分配哨兵用户
func (u *User) IsNoPerson() bool {
	return u.Username == NoPersonUsername
}

// Invite 邀请注册记录,凭一次性令牌注册并获得角色
type Invite struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Role      Role      `gorm:"not null"`
	InviterID uint      `gorm:"not null;index"` // 发起邀请的用户,员工邀请同时决定 manager_id
	UsedBy    *uint     `gorm:"index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// TableName 指定表名
func (Invite) TableName() string {
	return "invites"
}

// Usable 判断邀请是否仍可使用
func (i *Invite) Usable(now time.Time) bool {
	return i.UsedBy == nil && now.Before(i.ExpiresAt)
}
