package wizard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PFEPLTechHub/telegram-task/internal/wizard"
)

func newStore(ttl time.Duration) *wizard.Store {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return wizard.NewStore(ttl, log)
}

// TestStore_BeginReplacesExisting 测试新向导替换旧向导
func TestStore_BeginReplacesExisting(t *testing.T) {
	st := newStore(time.Minute)

	first := st.Begin(1, wizard.FlowCreate, wizard.StepDescription)
	first.Description = "half-finished task"

	second := st.Begin(1, wizard.FlowComplete, wizard.StepSelectTask)
	assert.Equal(t, wizard.FlowComplete, second.Flow)
	assert.Empty(t, second.Description)
	assert.Equal(t, 1, st.Len())
}

// TestStore_GetAndEvict 测试取出与逐出
func TestStore_GetAndEvict(t *testing.T) {
	st := newStore(time.Minute)

	assert.Nil(t, st.Get(1))

	st.Begin(1, wizard.FlowCreate, wizard.StepDescription)
	require.NotNil(t, st.Get(1))

	st.Evict(1)
	assert.Nil(t, st.Get(1))
	assert.Zero(t, st.Len())
}

// TestStore_SweeperExpiresIdleSessions 测试超时清理
func TestStore_SweeperExpiresIdleSessions(t *testing.T) {
	st := newStore(20 * time.Millisecond)
	st.Begin(1, wizard.FlowCreate, wizard.StepDescription)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st.StartSweeper(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return st.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

// TestSession_SeenInteraction 测试重复交互检测
func TestSession_SeenInteraction(t *testing.T) {
	st := newStore(time.Minute)
	s := st.Begin(1, wizard.FlowCreate, wizard.StepDescription)

	assert.False(t, s.SeenInteraction("cb-1"))
	assert.True(t, s.SeenInteraction("cb-1"))
	assert.False(t, s.SeenInteraction("cb-2"))

	// 空 ID 不参与去重
	assert.False(t, s.SeenInteraction(""))
	assert.False(t, s.SeenInteraction(""))
}

// TestSession_SeenRingEvictsOldest 测试去重环淘汰最老的记录
func TestSession_SeenRingEvictsOldest(t *testing.T) {
	st := newStore(time.Minute)
	s := st.Begin(1, wizard.FlowCreate, wizard.StepDescription)

	for i := 0; i < 40; i++ {
		s.SeenInteraction(fmt.Sprintf("cb-%d", i))
	}
	// 最早的 ID 已被挤出环,不再视作重复
	assert.False(t, s.SeenInteraction("cb-0"))
	assert.True(t, s.SeenInteraction("cb-39"))
}
