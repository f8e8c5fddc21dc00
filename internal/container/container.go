package container

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/bot"
	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/database"
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/scheduler"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
	"github.com/PFEPLTechHub/telegram-task/internal/wizard"
)

// Container 依赖注入容器
// 管理数据库、仓储、服务、机器人与调度器的装配
type Container struct {
	db        *gorm.DB
	cfg       *config.Config
	log       *logrus.Logger
	tasks     repository.TaskRepository
	users     repository.UserRepository
	projects  repository.ProjectRepository
	reminders repository.ReminderRepository
	taskSvc   service.TaskService
	userSvc   service.UserService
	sessions  *wizard.Store
	engine    *wizard.Engine
	bot       *bot.Bot
	scheduler *scheduler.Scheduler
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, log *logrus.Logger) (*Container, error) {
	// 初始化数据库(带重试机制)
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c := &Container{db: db, cfg: cfg, log: log}

	// 仓储层
	c.tasks = repository.NewTaskRepository(db)
	c.users = repository.NewUserRepository(db)
	c.projects = repository.NewProjectRepository(db)
	c.reminders = repository.NewReminderRepository(db)

	// 用户服务先于机器人装配
	c.userSvc = service.NewUserService(c.users, log)

	// 向导会话存储
	c.sessions = wizard.NewStore(cfg.Wizard.SessionTTL(), log)

	return c, nil
}

// lateNotifier 延迟绑定的通知器
// 任务服务在机器人之前创建,机器人就绪后再把真正的发送器挂进来。
type lateNotifier struct {
	inner notify.Notifier
}

func (l *lateNotifier) set(n notify.Notifier) { l.inner = n }

func (l *lateNotifier) Send(chatID int64, msg notify.Message) bool {
	if l.inner == nil {
		return false
	}
	return l.inner.Send(chatID, msg)
}

// Wire 装配依赖 Telegram 连接的组件
// 与 NewContainer 分开,让 migrate 等离线命令不必持有机器人令牌。
func (c *Container) Wire() error {
	sender := &lateNotifier{}
	taskSvc := service.NewTaskService(c.tasks, c.users, c.projects, c.reminders, sender, c.log)
	c.taskSvc = taskSvc

	c.engine = wizard.NewEngine(taskSvc, c.userSvc, c.projects, c.sessions, c.log)

	b, err := bot.New(c.cfg.Bot, c.engine, c.userSvc, taskSvc, c.log)
	if err != nil {
		return err
	}
	c.bot = b
	sender.set(b.Notifier())

	c.scheduler = scheduler.New(taskSvc, c.tasks, c.users, c.reminders,
		b.Notifier(), c.cfg.Scheduler, c.cfg.Location(), c.log)
	return nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskSvc
}

// UserService 获取用户服务
func (c *Container) UserService() service.UserService {
	return c.userSvc
}

// ProjectRepository 获取项目仓储
func (c *Container) ProjectRepository() repository.ProjectRepository {
	return c.projects
}

// Sessions 获取向导会话存储
func (c *Container) Sessions() *wizard.Store {
	return c.sessions
}

// Bot 获取机器人
func (c *Container) Bot() *bot.Bot {
	return c.bot
}

// Scheduler 获取提醒调度器
func (c *Container) Scheduler() *scheduler.Scheduler {
	return c.scheduler
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return nil
}
