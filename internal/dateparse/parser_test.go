package dateparse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PFEPLTechHub/telegram-task/internal/dateparse"
)

// refNow 固定参考时间: 2025-06-10 12:00
var refNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

// TestParse_DayMonthName 测试 "20 dec 5:30pm" 语法
func TestParse_DayMonthName(t *testing.T) {
	r := dateparse.Parse("20 dec 5:30pm", refNow)
	require.True(t, r.Valid)
	assert.True(t, r.HasTimeComponent)
	assert.False(t, r.NeedsClarification)
	assert.Equal(t, time.Date(2025, time.December, 20, 17, 30, 0, 0, time.UTC), r.Date)
}

// TestParse_MonthNameDay 测试 "dec 20 5:30pm" 语法
func TestParse_MonthNameDay(t *testing.T) {
	r := dateparse.Parse("dec 20 5:30pm", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.Date(2025, time.December, 20, 17, 30, 0, 0, time.UTC), r.Date)
}

// TestParse_FullMonthName 测试月份全名
func TestParse_FullMonthName(t *testing.T) {
	r := dateparse.Parse("december 20 5:30pm", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.December, r.Date.Month())
}

// TestParse_DayMonthNumeric 测试 "20 12 5:30pm" 语法
func TestParse_DayMonthNumeric(t *testing.T) {
	r := dateparse.Parse("20 12 5:30pm", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.Date(2025, time.December, 20, 17, 30, 0, 0, time.UTC), r.Date)

	r = dateparse.Parse("20 13 5:30pm", refNow)
	assert.False(t, r.Valid)
	assert.Equal(t, "Invalid date", r.Err)
}

// TestParse_TimeOnly 测试仅时间输入取当天日期
func TestParse_TimeOnly(t *testing.T) {
	r := dateparse.Parse("6:00pm", refNow)
	require.True(t, r.Valid)
	assert.True(t, r.HasTimeComponent)
	assert.Equal(t, time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC), r.Date)
}

// TestParse_MeridiemConversion 测试 12 小时制换算
func TestParse_MeridiemConversion(t *testing.T) {
	r := dateparse.Parse("12:15am", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, 0, r.Date.Hour())
	assert.Equal(t, 15, r.Date.Minute())

	r = dateparse.Parse("12:30pm", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, 12, r.Date.Hour())

	r = dateparse.Parse("9:00am", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, 9, r.Date.Hour())
}

// TestParse_AmbiguousTime 测试缺少 am/pm 时要求澄清
func TestParse_AmbiguousTime(t *testing.T) {
	r := dateparse.Parse("8:00", refNow)
	require.True(t, r.Valid)
	assert.True(t, r.NeedsClarification)
	assert.Equal(t, 8, r.AmbiguousHour)
	assert.Equal(t, 8, r.Date.Hour())
	assert.Equal(t, 10, r.Date.Day())
}

// TestParse_AmbiguousDayTime 测试 "15 8:00" 歧义变体
func TestParse_AmbiguousDayTime(t *testing.T) {
	r := dateparse.Parse("15 8:00", refNow)
	require.True(t, r.Valid)
	assert.True(t, r.NeedsClarification)
	assert.Equal(t, 8, r.AmbiguousHour)
	assert.Equal(t, 15, r.Date.Day())
	assert.Equal(t, time.June, r.Date.Month())
}

// TestParse_DayOnly 测试仅日输入取当天末尾
func TestParse_DayOnly(t *testing.T) {
	r := dateparse.Parse("15", refNow)
	require.True(t, r.Valid)
	assert.False(t, r.HasTimeComponent)
	assert.Equal(t, time.Date(2025, time.June, 15, 23, 59, 59, 0, time.UTC), r.Date)
}

// TestParse_DayWithTime 测试 "5 5:00pm" 语法
func TestParse_DayWithTime(t *testing.T) {
	r := dateparse.Parse("15 5:00pm", refNow)
	require.True(t, r.Valid)
	assert.True(t, r.HasTimeComponent)
	assert.Equal(t, time.Date(2025, time.June, 15, 17, 0, 0, 0, time.UTC), r.Date)
}

// TestParse_DayRollsToNextMonth 测试早于今天的日滚动到下个月
func TestParse_DayRollsToNextMonth(t *testing.T) {
	r := dateparse.Parse("5", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.July, r.Date.Month())
	assert.Equal(t, 5, r.Date.Day())
	assert.Equal(t, 2025, r.Date.Year())
}

// TestParse_DecemberRollsToJanuary 测试十二月滚动回绕到次年一月
func TestParse_DecemberRollsToJanuary(t *testing.T) {
	decNow := time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC)
	r := dateparse.Parse("5", decNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.January, r.Date.Month())
	assert.Equal(t, 2026, r.Date.Year())
}

// TestParse_SameDayDoesNotRoll 测试等于今天的日不滚动
func TestParse_SameDayDoesNotRoll(t *testing.T) {
	r := dateparse.Parse("10", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.June, r.Date.Month())
	assert.Equal(t, 10, r.Date.Day())
}

// TestParse_InvalidDay 测试超出当月天数的日
func TestParse_InvalidDay(t *testing.T) {
	// 六月只有三十天
	r := dateparse.Parse("31", refNow)
	assert.False(t, r.Valid)
	assert.Equal(t, "Invalid date", r.Err)

	r = dateparse.Parse("30 feb 5:00pm", refNow)
	assert.False(t, r.Valid)
	assert.Equal(t, "Invalid date", r.Err)
}

// TestParse_InvalidTime 测试非法时分
func TestParse_InvalidTime(t *testing.T) {
	r := dateparse.Parse("13:00pm", refNow)
	assert.False(t, r.Valid)
	assert.Equal(t, "Invalid time", r.Err)

	r = dateparse.Parse("6:75pm", refNow)
	assert.False(t, r.Valid)
	assert.Equal(t, "Invalid time", r.Err)
}

// TestParse_Unrecognized 测试无法识别的输入返回格式提示
func TestParse_Unrecognized(t *testing.T) {
	r := dateparse.Parse("next tuesday maybe", refNow)
	assert.False(t, r.Valid)
	assert.Contains(t, r.Err, "Invalid format")

	r = dateparse.Parse("", refNow)
	assert.False(t, r.Valid)
	assert.Contains(t, r.Err, "Invalid format")
}

// TestParse_CaseAndWhitespace 测试大小写与空白的容错
func TestParse_CaseAndWhitespace(t *testing.T) {
	r := dateparse.Parse("  20 DEC 5:30PM  ", refNow)
	require.True(t, r.Valid)
	assert.Equal(t, time.December, r.Date.Month())
}

// TestApplyMeridiem 测试歧义澄清后的时间重建
func TestApplyMeridiem(t *testing.T) {
	base := time.Date(2025, time.June, 15, 8, 30, 0, 0, time.UTC)

	am := dateparse.ApplyMeridiem(base, 8, false)
	assert.Equal(t, 8, am.Hour())
	assert.Equal(t, 30, am.Minute())

	pm := dateparse.ApplyMeridiem(base, 8, true)
	assert.Equal(t, 20, pm.Hour())

	noon := dateparse.ApplyMeridiem(base, 12, true)
	assert.Equal(t, 12, noon.Hour())
}

// TestFormat 测试截止日期渲染
func TestFormat(t *testing.T) {
	date := time.Date(2025, time.December, 20, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "December 20, 2025 at 5:30 PM", dateparse.Format(date, true))
	assert.Equal(t, "December 20, 2025", dateparse.Format(date, false))
}
