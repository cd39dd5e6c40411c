package model

import (
	"database/sql/driver"
	"fmt"
	"time"
	_ "time/tzdata"
)

// CanonicalZone 推荐日期的规范时区
const CanonicalZone = "America/New_York"

const dayLayout = "2006-01-02"

var canonicalLocation = mustLoadLocation(CanonicalZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("加载时区%s失败: %v", name, err))
	}
	return loc
}

// CanonicalLocation 返回 America/New_York
func CanonicalLocation() *time.Location { return canonicalLocation }

// Day 规范时区下的日历日，格式 YYYY-MM-DD，对应 picks.date (DATE) 列
type Day string

// DayOf 把任意时刻换算到规范时区的日历日
func DayOf(t time.Time) Day {
	return Day(t.In(canonicalLocation).Format(dayLayout))
}

// ParseDay 解析 YYYY-MM-DD
func ParseDay(s string) (Day, error) {
	t, err := time.ParseInLocation(dayLayout, s, canonicalLocation)
	if err != nil {
		return "", fmt.Errorf("日期格式错误(应为YYYY-MM-DD): %w", err)
	}
	return Day(t.Format(dayLayout)), nil
}

// Start 当日 00:00（规范时区）
func (d Day) Start() time.Time {
	t, err := time.ParseInLocation(dayLayout, string(d), canonicalLocation)
	if err != nil {
		return time.Time{}
	}
	return t
}

// End 次日 00:00（不含），即当日 23:59:59.999 之后
func (d Day) End() time.Time {
	return d.Start().AddDate(0, 0, 1)
}

// Contains 判断时刻是否落在当日
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start()) && t.Before(d.End())
}

func (d Day) String() string { return string(d) }

// Value 写库时以 YYYY-MM-DD 文本提交，由数据库转成 DATE
func (d Day) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

// Scan 兼容 PostgreSQL 返回 time.Time 以及 SQLite 返回文本的情况
func (d *Day) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		// DATE 列无时区含义，直接取 UTC 下的年月日
		*d = Day(v.UTC().Format(dayLayout))
	case string:
		*d = Day(trimDay(v))
	case []byte:
		*d = Day(trimDay(string(v)))
	default:
		return fmt.Errorf("无法将%T扫描为Day", src)
	}
	return nil
}

func trimDay(s string) string {
	if len(s) >= len(dayLayout) {
		return s[:len(dayLayout)]
	}
	return s
}
