package bot

import (
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeUpdate(chatID int64, id int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message:  &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

// TestChatQueuesPreserveArrivalOrder 测试同一会话的更新按到达顺序处理
func TestChatQueuesPreserveArrivalOrder(t *testing.T) {
	var mu sync.Mutex
	got := make(map[int64][]int)
	q := newChatQueues(func(u tgbotapi.Update) {
		chatID := updateChatID(u)
		// 拉开处理耗时,放大可能的乱序窗口
		time.Sleep(time.Millisecond)
		mu.Lock()
		got[chatID] = append(got[chatID], u.UpdateID)
		mu.Unlock()
	})

	chats := []int64{100, 200, 300}
	for i := 0; i < 20; i++ {
		for _, chatID := range chats {
			q.Enqueue(chatID, makeUpdate(chatID, i))
		}
	}
	q.Wait()

	for _, chatID := range chats {
		require.Len(t, got[chatID], 20)
		for i, id := range got[chatID] {
			assert.Equal(t, i, id)
		}
	}
}

// TestChatQueuesReclaimed 测试队列排空后被回收,不随会话数增长
func TestChatQueuesReclaimed(t *testing.T) {
	q := newChatQueues(func(tgbotapi.Update) {})
	for i := 0; i < 50; i++ {
		q.Enqueue(int64(i), makeUpdate(int64(i), i))
	}
	q.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Empty(t, q.queues)
}
