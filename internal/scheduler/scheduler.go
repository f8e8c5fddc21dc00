// Package scheduler 实现提醒派发与逾期扫描。
// 每分钟走一个节拍,先执行逾期扫描,再检查是否有提醒档到点。
// 每个任务的每类提醒只发一次,发送记录落库,重启不会重发。
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/dateparse"
	"github.com/PFEPLTechHub/telegram-task/internal/metrics"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// slot 一个提醒档: 在每天 at 时刻对 window 内的任务发 typ 类提醒
type slot struct {
	typ model.ReminderType
	at  string // "HH:MM"
}

// Scheduler 提醒调度器
type Scheduler struct {
	tasks     service.TaskService
	taskRepo  repository.TaskRepository
	users     repository.UserRepository
	reminders repository.ReminderRepository
	notifier  notify.Notifier
	cfg       config.SchedulerConfig
	loc       *time.Location
	log       *logrus.Logger
	now       func() time.Time

	slots []slot
	// fired 记录每个档位当天是否已触发,键为 "type|2006-01-02"
	fired map[string]bool

	stopChan chan struct{}
	done     chan struct{}
}

// New 创建提醒调度器
func New(tasks service.TaskService, taskRepo repository.TaskRepository,
	users repository.UserRepository, reminders repository.ReminderRepository,
	notifier notify.Notifier, cfg config.SchedulerConfig, loc *time.Location,
	log *logrus.Logger) *Scheduler {
	s := &Scheduler{
		tasks:     tasks,
		taskRepo:  taskRepo,
		users:     users,
		reminders: reminders,
		notifier:  notifier,
		cfg:       cfg,
		loc:       loc,
		log:       log,
		now:       func() time.Time { return time.Now().In(loc) },
		fired:     make(map[string]bool),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.slots = []slot{
		{model.ReminderTomorrow, cfg.TomorrowAt},
		{model.ReminderTodayMorning, cfg.TodayMorningAt},
		{model.ReminderTodayEvening, cfg.TodayEveningAt},
		{model.ReminderOverdueFirst, cfg.OverdueFirstAt},
		{model.ReminderOverdueSecond, cfg.OverdueLaterAt},
	}
	return s
}

// Start 启动调度循环
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop 停止调度循环并等待其退出
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.done
}

// run 分钟级节拍循环
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}

// Tick 执行一个节拍
// 先做逾期扫描再派发提醒,保证当天 0 点档的逾期提醒
// 看到的是最新的逾期集合。
func (s *Scheduler) Tick(now time.Time) {
	if _, err := s.tasks.SweepOverdue(now); err != nil {
		s.log.WithError(err).Error("overdue sweep failed")
	}
	if !s.cfg.Enabled {
		return
	}

	hhmm := now.Format("15:04")
	day := now.Format("2006-01-02")
	for _, sl := range s.slots {
		key := fmt.Sprintf("%d|%s", sl.typ, day)
		if sl.at != hhmm || s.fired[key] {
			continue
		}
		s.fired[key] = true
		s.runSlot(sl.typ, now)
	}

	// 丢弃前一天的触发记录
	for key := range s.fired {
		if len(key) > 2 && key[2:] != day {
			delete(s.fired, key)
		}
	}
}

// runSlot 执行一个提醒档
func (s *Scheduler) runSlot(typ model.ReminderType, now time.Time) {
	tasks, err := s.tasksForSlot(typ, now)
	if err != nil {
		s.log.WithError(err).WithField("type", typ.String()).Error("failed to load tasks for reminder")
		return
	}

	sent := 0
	for _, t := range tasks {
		if s.remind(t, typ) {
			sent++
		}
	}
	if sent > 0 {
		s.log.WithFields(logrus.Fields{"type": typ.String(), "sent": sent}).Info("reminders dispatched")
	}
}

// tasksForSlot 选出某档提醒的目标任务
func (s *Scheduler) tasksForSlot(typ model.ReminderType, now time.Time) ([]*model.Task, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.Add(24 * time.Hour)
	pending := model.StatusPending
	overdue := model.StatusOverdue

	switch typ {
	case model.ReminderTomorrow:
		after, before := dayEnd, dayEnd.Add(24*time.Hour)
		return s.taskRepo.FindByFilter(&repository.TaskFilter{
			Status: &pending, DueAfter: &after, DueBefore: &before,
		})
	case model.ReminderTodayMorning, model.ReminderTodayEvening:
		return s.taskRepo.FindByFilter(&repository.TaskFilter{
			Status: &pending, DueAfter: &dayStart, DueBefore: &dayEnd,
		})
	case model.ReminderOverdueFirst, model.ReminderOverdueSecond:
		return s.taskRepo.FindByFilter(&repository.TaskFilter{Status: &overdue})
	}
	return nil, nil
}

// remind 给单个任务发一条提醒,已发过或执行人不可达时跳过
func (s *Scheduler) remind(task *model.Task, typ model.ReminderType) bool {
	reminder, err := s.reminders.Ensure(task.ID, typ)
	if err != nil {
		s.log.WithError(err).WithField("task_id", task.ID).Error("failed to ensure reminder")
		return false
	}
	if reminder.IsSent {
		return false
	}

	employee, err := s.users.FindByID(task.EmployeeID)
	if err != nil || !employee.Reachable() || employee.IsNoPerson() {
		return false
	}

	ok := s.notifier.Send(employee.TelegramID, notify.Message{Text: s.message(task, typ)})
	metrics.RecordNotification(ok)
	if !ok {
		return false
	}
	if err := s.reminders.MarkSent(reminder.ID, s.now()); err != nil {
		s.log.WithError(err).WithField("task_id", task.ID).Error("failed to mark reminder sent")
	}
	metrics.RecordReminderSent(typ.String())
	return true
}

// message 各档提醒的消息文案
func (s *Scheduler) message(task *model.Task, typ model.ReminderType) string {
	due := dateparse.Format(task.DueDate, task.HasDueTime)
	switch typ {
	case model.ReminderTomorrow:
		return fmt.Sprintf("⏰ Reminder: this task is due tomorrow.\n%s\nDue: %s", task.Description, due)
	case model.ReminderTodayMorning:
		return fmt.Sprintf("📅 This task is due today.\n%s\nDue: %s", task.Description, due)
	case model.ReminderTodayEvening:
		return fmt.Sprintf("⏳ Still open and due today.\n%s\nDue: %s", task.Description, due)
	case model.ReminderOverdueFirst:
		return fmt.Sprintf("🔴 This task is now overdue.\n%s\nWas due: %s", task.Description, due)
	default:
		return fmt.Sprintf("🔴 Reminder: this task is still overdue.\n%s\nWas due: %s", task.Description, due)
	}
}
