// Package models 抽奖活动模型测试
package models

import (
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRaffle(status RaffleStatus, start, end time.Time) *Raffle {
	return &Raffle{
		Status:    status,
		StartTime: start,
		EndTime:   end,
	}
}

func TestRaffle_DeriveState(t *testing.T) {
	start := baseTime.Add(1 * time.Hour)
	end := baseTime.Add(2 * time.Hour)

	tests := []struct {
		name     string
		raffle   *Raffle
		now      time.Time
		expected RaffleState
	}{
		{"未激活且未开始为 draft", newRaffle(RaffleStatusInactive, start, end), baseTime, RaffleStateDraft},
		{"未激活且已开始为 paused", newRaffle(RaffleStatusInactive, start, end), start.Add(10 * time.Minute), RaffleStatePaused},
		{"已激活且未开始为 coming_soon", newRaffle(RaffleStatusActive, start, end), baseTime, RaffleStateComingSoon},
		{"已激活且已开始为 open", newRaffle(RaffleStatusActive, start, end), start.Add(10 * time.Minute), RaffleStateOpen},
		{"开始时刻边界判定为 open", newRaffle(RaffleStatusActive, start, end), start, RaffleStateOpen},
		{"结束时刻边界判定为 ended", newRaffle(RaffleStatusActive, start, end), end, RaffleStateEnded},
		{"超过结束时间为 ended", newRaffle(RaffleStatusActive, start, end), end.Add(time.Minute), RaffleStateEnded},
		{"已取消直接为 ended", newRaffle(RaffleStatusCancelled, start, end), baseTime, RaffleStateEnded},
		{"已取消即使在售票窗口也是 ended", newRaffle(RaffleStatusCancelled, start, end), start.Add(10 * time.Minute), RaffleStateEnded},
		{"未激活但已超过结束时间为 ended", newRaffle(RaffleStatusInactive, start, end), end.Add(time.Hour), RaffleStateEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.raffle.DeriveState(tt.now); got != tt.expected {
				t.Errorf("DeriveState() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRaffle_DeriveState_Pure(t *testing.T) {
	start := baseTime.Add(1 * time.Hour)
	end := baseTime.Add(2 * time.Hour)
	r := newRaffle(RaffleStatusActive, start, end)

	// 相同输入重复调用必须得到相同结果，且不改变任何字段
	first := r.DeriveState(baseTime)
	second := r.DeriveState(baseTime)
	if first != second {
		t.Errorf("相同输入结果不一致: %v != %v", first, second)
	}
	if r.State != "" {
		t.Errorf("DeriveState 不应修改 State 字段，实际为 %v", r.State)
	}
	if r.Status != RaffleStatusActive {
		t.Errorf("DeriveState 不应修改 Status 字段，实际为 %v", r.Status)
	}
}

func TestRaffle_IsOpenForSale(t *testing.T) {
	start := baseTime.Add(-1 * time.Hour)
	end := baseTime.Add(1 * time.Hour)

	tests := []struct {
		name     string
		raffle   *Raffle
		expected bool
	}{
		{"激活且在窗口内可售", newRaffle(RaffleStatusActive, start, end), true},
		{"未激活不可售", newRaffle(RaffleStatusInactive, start, end), false},
		{"已取消不可售", newRaffle(RaffleStatusCancelled, start, end), false},
		{"已结束不可售", newRaffle(RaffleStatusActive, start.Add(-2*time.Hour), baseTime.Add(-time.Minute)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.raffle.IsOpenForSale(baseTime); got != tt.expected {
				t.Errorf("IsOpenForSale() = %v, want %v", got, tt.expected)
			}
		})
	}
}
