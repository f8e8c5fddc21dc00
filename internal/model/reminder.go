package model

import "time"

// ReminderType 提醒类型,数值沿用旧库存储约定
type ReminderType int

const (
	ReminderTomorrow      ReminderType = 0 // 明天到期
	ReminderTodayMorning  ReminderType = 1 // 今天到期,早间提醒
	ReminderTodayEvening  ReminderType = 2 // 今天到期,傍晚提醒
	ReminderOverdueFirst  ReminderType = 3 // 逾期第一次
	ReminderOverdueSecond ReminderType = 4 // 逾期第二次
)

// AllReminderTypes 全部提醒类型
var AllReminderTypes = []ReminderType{
	ReminderTomorrow,
	ReminderTodayMorning,
	ReminderTodayEvening,
	ReminderOverdueFirst,
	ReminderOverdueSecond,
}

// String 返回提醒类型名称,用于日志与指标
func (t ReminderType) String() string {
	switch t {
	case ReminderTomorrow:
		return "tomorrow"
	case ReminderTodayMorning:
		return "today_morning"
	case ReminderTodayEvening:
		return "today_evening"
	case ReminderOverdueFirst:
		return "overdue_first"
	case ReminderOverdueSecond:
		return "overdue_second"
	}
	return "unknown"
}

// Reminder 提醒记录,每个任务按类型各一行,发送后翻转 IsSent
type Reminder struct {
	ID        uint         `gorm:"primaryKey"`
	TaskID    uint         `gorm:"not null;uniqueIndex:idx_reminder_pair"`
	Type      ReminderType `gorm:"column:reminder_type;not null;uniqueIndex:idx_reminder_pair"`
	IsSent    bool         `gorm:"not null;default:false;index"`
	SentAt    *time.Time
	CreatedAt time.Time
}

// TableName 指定表名
func (Reminder) TableName() string {
	return "reminders"
}
