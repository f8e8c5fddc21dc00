// Package dateparse 解析自由文本的截止日期表达式。
// 所有计算都在调用方传入的参考时间所属时区内进行,单一时区基线,
// 不做任何时区换算。
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result 解析结果
// Valid 为 false 时 Err 描述可接受的格式,调用方据此重新提示输入,
// 这是可恢复的输入错误而不是异常。
type Result struct {
	Date               time.Time
	Valid              bool
	HasTimeComponent   bool
	NeedsClarification bool // 小时缺少 am/pm 标记,需要调用方向用户确认
	AmbiguousHour      int  // NeedsClarification 为 true 时的原始小时值(1-12)
	Err                string
}

const formatHint = "Invalid format. Please use formats like:\n- 20 dec 5:30pm\n- dec 20 5:30pm\n- 20 12 5:30pm\n- 5 5:00pm"

// monthNames 月份名到月份的映射,接受全名与三字母缩写
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

const monthAlt = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|january|february|march|april|june|july|august|september|october|november|december`

var (
	// 语法 1: "20 dec 5:30pm"
	reDayMonthName = regexp.MustCompile(`^(\d{1,2})\s+(` + monthAlt + `)\s+(\d{1,2}):(\d{2})\s*(am|pm)$`)
	// 语法 2: "dec 20 5:30pm"
	reMonthNameDay = regexp.MustCompile(`^(` + monthAlt + `)\s+(\d{1,2})\s+(\d{1,2}):(\d{2})\s*(am|pm)$`)
	// 语法 3: "20 12 5:30pm"
	reDayMonthNum = regexp.MustCompile(`^(\d{1,2})\s+(\d{1,2})\s+(\d{1,2}):(\d{2})\s*(am|pm)$`)
	// 语法 4: "6:00pm" 仅时间,日期取当天
	reTimeOnly = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(am|pm)$`)
	// 语法 4 的歧义变体: "8:00",缺少 am/pm
	reTimeOnlyAmbiguous = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	// 语法 5: "6" 或 "6 6:00pm",仅日,时间可选
	reDayOptTime = regexp.MustCompile(`^(\d{1,2})(?:\s+(\d{1,2}):(\d{2})\s*(am|pm))?$`)
	// 语法 5 的歧义变体: "15 8:00",缺少 am/pm
	reDayTimeAmbiguous = regexp.MustCompile(`^(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
)

// daysInMonth 各月天数,二月按 28 处理
var daysInMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Parse 按五种语法依次尝试解析输入,now 决定默认的年月日与时区
func Parse(input string, now time.Time) Result {
	clean := strings.ToLower(strings.TrimSpace(input))
	if clean == "" {
		return fail()
	}

	if m := reDayMonthName.FindStringSubmatch(clean); m != nil {
		return withMonth(now, atoi(m[1]), monthNames[m[2]], atoi(m[3]), atoi(m[4]), m[5])
	}
	if m := reMonthNameDay.FindStringSubmatch(clean); m != nil {
		return withMonth(now, atoi(m[2]), monthNames[m[1]], atoi(m[3]), atoi(m[4]), m[5])
	}
	if m := reDayMonthNum.FindStringSubmatch(clean); m != nil {
		month := atoi(m[2])
		if month < 1 || month > 12 {
			return invalid("Invalid date")
		}
		return withMonth(now, atoi(m[1]), time.Month(month), atoi(m[3]), atoi(m[4]), m[5])
	}
	if m := reTimeOnly.FindStringSubmatch(clean); m != nil {
		hour, minute := atoi(m[1]), atoi(m[2])
		if !validTime(hour, minute) {
			return invalid("Invalid time")
		}
		h, mm := applyMeridiem(hour, minute, m[3])
		return ok(dateAt(now, now.Day(), now.Month(), h, mm), true)
	}
	if m := reTimeOnlyAmbiguous.FindStringSubmatch(clean); m != nil {
		hour, minute := atoi(m[1]), atoi(m[2])
		if !validTime(hour, minute) {
			return invalid("Invalid time")
		}
		return ambiguous(dateAt(now, now.Day(), now.Month(), hour, minute), hour)
	}
	if m := reDayOptTime.FindStringSubmatch(clean); m != nil {
		return dayGrammar(now, m)
	}
	if m := reDayTimeAmbiguous.FindStringSubmatch(clean); m != nil {
		day, hour, minute := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if !validTime(hour, minute) {
			return invalid("Invalid time")
		}
		d, month, year, errRes := rollDay(now, day)
		if errRes != nil {
			return *errRes
		}
		base := time.Date(year, month, d, hour, minute, 0, 0, now.Location())
		return ambiguous(base, hour)
	}

	return fail()
}

// ApplyMeridiem 在用户澄清 AM/PM 后重建截止时间
// AM 保留原始小时,PM 对 12 以下小时加 12。
func ApplyMeridiem(ambiguous time.Time, hour int, pm bool) time.Time {
	h := hour
	if pm && h < 12 {
		h += 12
	}
	return time.Date(ambiguous.Year(), ambiguous.Month(), ambiguous.Day(), h, ambiguous.Minute(), 0, 0, ambiguous.Location())
}

// dayGrammar 处理语法 5: 仅日,时间可选
func dayGrammar(now time.Time, m []string) Result {
	day := atoi(m[1])
	d, month, year, errRes := rollDay(now, day)
	if errRes != nil {
		return *errRes
	}

	if m[2] == "" {
		// 无显式时间,取当天 23:59:59
		date := time.Date(year, month, d, 23, 59, 59, 0, now.Location())
		return ok(date, false)
	}

	hour, minute := atoi(m[2]), atoi(m[3])
	if !validTime(hour, minute) {
		return invalid("Invalid time")
	}
	h, mm := applyMeridiem(hour, minute, m[4])
	return ok(time.Date(year, month, d, h, mm, 0, 0, now.Location()), true)
}

// rollDay 校验日值并在日早于今天时滚动到下个月,十二月回绕到次年一月
func rollDay(now time.Time, day int) (int, time.Month, int, *Result) {
	month, year := now.Month(), now.Year()
	if !validDay(day, month) {
		r := invalid("Invalid date")
		return 0, 0, 0, &r
	}
	if day < now.Day() {
		month++
		if month > time.December {
			month = time.January
			year++
		}
		if !validDay(day, month) {
			r := invalid("Invalid date")
			return 0, 0, 0, &r
		}
	}
	return day, month, year, nil
}

// withMonth 处理带月份的语法 1-3
func withMonth(now time.Time, day int, month time.Month, hour, minute int, meridiem string) Result {
	if !validDay(day, month) {
		return invalid("Invalid date")
	}
	if !validTime(hour, minute) {
		return invalid("Invalid time")
	}
	h, mm := applyMeridiem(hour, minute, meridiem)
	return ok(dateAt(now, day, month, h, mm), true)
}

func dateAt(now time.Time, day int, month time.Month, hour, minute int) time.Time {
	return time.Date(now.Year(), month, day, hour, minute, 0, 0, now.Location())
}

// applyMeridiem 12 小时制转 24 小时制
func applyMeridiem(hour, minute int, meridiem string) (int, int) {
	if meridiem == "pm" && hour < 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}
	return hour, minute
}

func validDay(day int, month time.Month) bool {
	if day < 1 || month < time.January || month > time.December {
		return false
	}
	return day <= daysInMonth[month]
}

func validTime(hour, minute int) bool {
	return hour >= 1 && hour <= 12 && minute >= 0 && minute <= 59
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func ok(date time.Time, hasTime bool) Result {
	return Result{Date: date, Valid: true, HasTimeComponent: hasTime}
}

func ambiguous(date time.Time, hour int) Result {
	return Result{Date: date, Valid: true, HasTimeComponent: true, NeedsClarification: true, AmbiguousHour: hour}
}

func invalid(msg string) Result {
	return Result{Err: msg}
}

func fail() Result {
	return Result{Err: formatHint}
}

// Format 按是否带时间分量渲染截止日期
func Format(date time.Time, hasTime bool) string {
	if hasTime {
		return date.Format("January 2, 2006 at 3:04 PM")
	}
	return date.Format("January 2, 2006")
}

// FormatShort 渲染任务列表里的紧凑日期
func FormatShort(date time.Time) string {
	return fmt.Sprintf("%s %d, %s", date.Format("Jan"), date.Day(), date.Format("03:04 PM"))
}
