package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatQueues 按会话串行分发更新
// 同一会话的更新严格按到达顺序逐条处理,不同会话并行;
// 队列排空后立即回收,不随出现过的会话数增长。
type chatQueues struct {
	handle func(tgbotapi.Update)

	mu     sync.Mutex
	queues map[int64]*chatQueue
	wg     sync.WaitGroup
}

type chatQueue struct {
	pending []tgbotapi.Update
}

func newChatQueues(handle func(tgbotapi.Update)) *chatQueues {
	return &chatQueues{
		handle: handle,
		queues: make(map[int64]*chatQueue),
	}
}

// Enqueue 把更新排进所属会话的队列
// 队列不存在说明该会话当前没有在跑的 worker,起一个新的。
func (d *chatQueues) Enqueue(chatID int64, update tgbotapi.Update) {
	d.mu.Lock()
	q, running := d.queues[chatID]
	if !running {
		q = &chatQueue{}
		d.queues[chatID] = q
	}
	q.pending = append(q.pending, update)
	d.mu.Unlock()

	if !running {
		d.wg.Add(1)
		go d.drain(chatID, q)
	}
}

// drain 逐条处理该会话的更新,排空后把队列从表里摘掉
// 删除只在持锁且队列确认为空时发生,晚到的 Enqueue 要么排进
// 这个队列,要么在删除后新建队列并起新 worker,不会丢更新。
func (d *chatQueues) drain(chatID int64, q *chatQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.pending) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		update := q.pending[0]
		q.pending = q.pending[1:]
		d.mu.Unlock()

		d.handle(update)
	}
}

// Wait 等待所有在途更新处理完毕
func (d *chatQueues) Wait() {
	d.wg.Wait()
}
