// Package utils 工具函数
package utils

import (
	"fmt"
	"time"
)

// FormatAmount 格式化金额（分 -> 元字符串）
func FormatAmount(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// FormatDuration 格式化时长
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d小时%d分钟", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%d分钟%d秒", m, s)
	}
	return fmt.Sprintf("%d秒", s)
}

// TicketLabel 票号展示格式（如 #0042）
func TicketLabel(number int) string {
	return fmt.Sprintf("#%04d", number)
}
