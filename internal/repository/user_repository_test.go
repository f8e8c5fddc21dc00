package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
)

// setupUserDB 创建用户测试数据库
func setupUserDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&model.User{}, &model.Invite{})
	require.NoError(t, err)

	return db
}

// TestUserRepository_FindByTelegramID 测试会话 ID 查找
func TestUserRepository_FindByTelegramID(t *testing.T) {
	repo := repository.NewUserRepository(setupUserDB(t))

	user := &model.User{TelegramID: 1001, FirstName: "Asha", Role: model.RoleManager}
	require.NoError(t, repo.Save(user))

	found, err := repo.FindByTelegramID(1001)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByTelegramID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestUserRepository_FindManagers 测试经理列表按名字排序
func TestUserRepository_FindManagers(t *testing.T) {
	repo := repository.NewUserRepository(setupUserDB(t))

	require.NoError(t, repo.Save(&model.User{TelegramID: 1, FirstName: "Zoya", Role: model.RoleManager}))
	require.NoError(t, repo.Save(&model.User{TelegramID: 2, FirstName: "Amit", Role: model.RoleManager}))
	require.NoError(t, repo.Save(&model.User{TelegramID: 3, FirstName: "Ema", Role: model.RoleEmployee}))

	managers, err := repo.FindManagers()
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, "Amit", managers[0].FirstName)
	assert.Equal(t, "Zoya", managers[1].FirstName)
}

// TestUserRepository_FindAssignable 测试可指派列表排除哨兵用户
func TestUserRepository_FindAssignable(t *testing.T) {
	repo := repository.NewUserRepository(setupUserDB(t))

	_, err := repo.EnsureNoPerson()
	require.NoError(t, err)
	require.NoError(t, repo.Save(&model.User{TelegramID: 1, FirstName: "Asha", Role: model.RoleEmployee}))

	users, err := repo.FindAssignable()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Asha", users[0].FirstName)
}

// TestUserRepository_EnsureNoPerson 测试哨兵用户幂等创建
func TestUserRepository_EnsureNoPerson(t *testing.T) {
	repo := repository.NewUserRepository(setupUserDB(t))

	first, err := repo.EnsureNoPerson()
	require.NoError(t, err)
	assert.True(t, first.IsNoPerson())
	assert.False(t, first.Reachable())

	second, err := repo.EnsureNoPerson()
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

// TestUserRepository_Invites 测试邀请记录的创建与消费
func TestUserRepository_Invites(t *testing.T) {
	repo := repository.NewUserRepository(setupUserDB(t))

	invite := &model.Invite{
		Token:     "tok-123",
		Role:      model.RoleEmployee,
		InviterID: 1,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateInvite(invite))

	found, err := repo.FindInvite("tok-123")
	require.NoError(t, err)
	assert.True(t, found.Usable(time.Now()))

	require.NoError(t, repo.ConsumeInvite("tok-123", 7))

	found, err = repo.FindInvite("tok-123")
	require.NoError(t, err)
	require.NotNil(t, found.UsedBy)
	assert.Equal(t, uint(7), *found.UsedBy)
	assert.False(t, found.Usable(time.Now()))
}
