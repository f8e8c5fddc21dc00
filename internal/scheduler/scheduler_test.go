package scheduler_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/scheduler"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// captureNotifier 记录出站提醒文本
type captureNotifier struct {
	sent []string
}

func (n *captureNotifier) Send(_ int64, msg notify.Message) bool {
	n.sent = append(n.sent, msg.Text)
	return true
}

var schedulerCfg = config.SchedulerConfig{
	Enabled:        true,
	TomorrowAt:     "09:00",
	TodayMorningAt: "08:00",
	TodayEveningAt: "17:00",
	OverdueFirstAt: "00:00",
	OverdueLaterAt: "10:30",
}

// fixture 调度器测试环境
type fixture struct {
	db        *gorm.DB
	sched     *scheduler.Scheduler
	taskRepo  repository.TaskRepository
	notifier  *captureNotifier
	reminders repository.ReminderRepository
	employee  *model.User
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	err = db.AutoMigrate(&model.User{}, &model.Project{}, &model.Task{}, &model.TaskCc{}, &model.Reminder{})
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	users := repository.NewUserRepository(db)
	employee := &model.User{TelegramID: 300, FirstName: "Ravi", Role: model.RoleEmployee}
	require.NoError(t, users.Save(employee))

	notifier := &captureNotifier{}
	taskRepo := repository.NewTaskRepository(db)
	reminders := repository.NewReminderRepository(db)
	tasks := service.NewTaskService(taskRepo, users, repository.NewProjectRepository(db),
		reminders, notifier, log)

	sched := scheduler.New(tasks, taskRepo, users, reminders, notifier,
		schedulerCfg, time.UTC, log)

	return &fixture{db: db, sched: sched, taskRepo: taskRepo, notifier: notifier,
		reminders: reminders, employee: employee}
}

// seedTask 直接落库一个待办任务
func (f *fixture) seedTask(t *testing.T, due time.Time) *model.Task {
	task := &model.Task{
		Description: "prepare quarterly report",
		EmployeeID:  f.employee.ID,
		AssignedBy:  1,
		DueDate:     due,
		Status:      model.StatusPending,
	}
	require.NoError(t, f.taskRepo.Create(task))
	return task
}

// at 构造当天某时刻的节拍时间
func at(hhmm string) time.Time {
	parsed, _ := time.Parse("15:04", hhmm)
	return time.Date(2025, time.June, 10, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

// TestTick_MorningReminderForTodayTasks 测试今日任务的早间提醒
func TestTick_MorningReminderForTodayTasks(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, at("18:00"))
	// 明天到期的任务不在今日档内
	f.seedTask(t, at("18:00").Add(24*time.Hour))

	f.sched.Tick(at("08:00"))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "due today")
}

// TestTick_TomorrowReminder 测试明日任务的提前提醒
func TestTick_TomorrowReminder(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, at("18:00").Add(24*time.Hour))

	f.sched.Tick(at("09:00"))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "due tomorrow")
}

// TestTick_SweepsBeforeOverdueSlot 测试逾期扫描先于逾期提醒
func TestTick_SweepsBeforeOverdueSlot(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t, at("00:00").Add(-time.Hour))

	// 0 点档: 扫描把任务置为逾期,同一节拍内发出首次逾期提醒
	f.sched.Tick(at("00:00"))

	updated, err := f.taskRepo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, updated.Status)

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "now overdue")
}

// TestTick_ReminderSentOncePerType 测试同档提醒只发一次
func TestTick_ReminderSentOncePerType(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, at("18:00"))

	f.sched.Tick(at("08:00"))
	f.sched.Tick(at("08:00"))
	require.Len(t, f.notifier.sent, 1)

	// 换一档仍会发送
	f.sched.Tick(at("17:00"))
	require.Len(t, f.notifier.sent, 2)
	assert.Contains(t, f.notifier.sent[1], "Still open")
}

// TestTick_PersistedDedupSurvivesRestart 测试发送记录落库后重启不重发
func TestTick_PersistedDedupSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, at("18:00"))

	f.sched.Tick(at("08:00"))
	require.Len(t, f.notifier.sent, 1)

	// 重建调度器模拟重启,内存触发记录清零但库里的发送记录仍在
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	users := repository.NewUserRepository(f.db)
	tasks := service.NewTaskService(f.taskRepo, users, repository.NewProjectRepository(f.db),
		f.reminders, f.notifier, log)
	restarted := scheduler.New(tasks, f.taskRepo, users, f.reminders, f.notifier,
		schedulerCfg, time.UTC, log)

	restarted.Tick(at("08:00"))
	assert.Len(t, f.notifier.sent, 1)
}

// TestTick_SkipsOffSlotMinutes 测试非档位时刻不派发
func TestTick_SkipsOffSlotMinutes(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, at("18:00"))

	f.sched.Tick(at("08:01"))
	assert.Empty(t, f.notifier.sent)
}

// TestTick_SkipsUnreachableEmployee 测试不可达执行人被跳过
func TestTick_SkipsUnreachableEmployee(t *testing.T) {
	f := newFixture(t)
	users := repository.NewUserRepository(f.db)
	sentinel, err := users.EnsureNoPerson()
	require.NoError(t, err)

	task := &model.Task{
		Description: "unassigned bucket task",
		EmployeeID:  sentinel.ID,
		AssignedBy:  1,
		DueDate:     at("18:00"),
		Status:      model.StatusPending,
	}
	require.NoError(t, f.taskRepo.Create(task))

	f.sched.Tick(at("08:00"))
	assert.Empty(t, f.notifier.sent)
}

// TestTick_DisabledSchedulerStillSweeps 测试关闭提醒时逾期扫描仍然执行
func TestTick_DisabledSchedulerStillSweeps(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t, at("00:00").Add(-time.Hour))

	disabledCfg := schedulerCfg
	disabledCfg.Enabled = false
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	users := repository.NewUserRepository(f.db)
	tasks := service.NewTaskService(f.taskRepo, users, repository.NewProjectRepository(f.db),
		f.reminders, f.notifier, log)
	disabled := scheduler.New(tasks, f.taskRepo, users, f.reminders, f.notifier,
		disabledCfg, time.UTC, log)

	disabled.Tick(at("00:00"))

	updated, err := f.taskRepo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, updated.Status)
	assert.Empty(t, f.notifier.sent)
}
