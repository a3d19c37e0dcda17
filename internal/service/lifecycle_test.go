package service

import (
	"errors"
	"testing"
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
)

func TestValidateStateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.RaffleState
		to      models.RaffleState
		wantErr bool
	}{
		{"预热可提前开售", models.RaffleStateComingSoon, models.RaffleStateOpen, false},
		{"预热可直接结束", models.RaffleStateComingSoon, models.RaffleStateEnded, false},
		{"售票中可暂停", models.RaffleStateOpen, models.RaffleStatePaused, false},
		{"售票中可结束", models.RaffleStateOpen, models.RaffleStateEnded, false},
		{"暂停可恢复", models.RaffleStatePaused, models.RaffleStateOpen, false},
		{"暂停可结束", models.RaffleStatePaused, models.RaffleStateEnded, false},
		{"预热不可暂停", models.RaffleStateComingSoon, models.RaffleStatePaused, true},
		{"草稿不可直接开售", models.RaffleStateDraft, models.RaffleStateOpen, true},
		{"结束为终态", models.RaffleStateEnded, models.RaffleStateOpen, true},
		{"不可回退到预热", models.RaffleStateOpen, models.RaffleStateComingSoon, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateStateTransition(%s, %s) err = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("期望 ErrInvalidTransition, 实际 %v", err)
			}
		})
	}
}

func TestValidateActivation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	poolID := uint(1)

	base := func() *models.Raffle {
		return &models.Raffle{
			Status:      models.RaffleStatusInactive,
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(48 * time.Hour),
			PrizePoolID: &poolID,
		}
	}

	tests := []struct {
		name       string
		modify     func(r *models.Raffle)
		poolLocked bool
		wantErr    bool
	}{
		{"正常激活", func(r *models.Raffle) {}, true, false},
		{"已取消不可激活", func(r *models.Raffle) { r.Status = models.RaffleStatusCancelled }, true, true},
		{"未绑定奖池不可激活", func(r *models.Raffle) { r.PrizePoolID = nil }, true, true},
		{"已过结束时间不可激活", func(r *models.Raffle) { r.EndTime = now.Add(-time.Minute) }, true, true},
		{"结束时间等于当前不可激活", func(r *models.Raffle) { r.EndTime = now }, true, true},
		{"奖池未锁定不可激活", func(r *models.Raffle) {}, false, true},
		{"已开始但未结束可激活", func(r *models.Raffle) { r.StartTime = now.Add(-time.Hour) }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.modify(r)
			err := validateActivation(r, tt.poolLocked, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateActivation() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// 变更表中不允许出现以 draft 或 ended 为起点的条目
func TestStateTransitionsTableShape(t *testing.T) {
	if _, ok := stateTransitions[models.RaffleStateDraft]; ok {
		t.Error("draft 阶段不应出现在变更表中")
	}
	if _, ok := stateTransitions[models.RaffleStateEnded]; ok {
		t.Error("ended 为终态，不应出现在变更表中")
	}

	for from, targets := range stateTransitions {
		for _, to := range targets {
			if to == from {
				t.Errorf("%s 不应允许自循环变更", from)
			}
			if to == models.RaffleStateDraft || to == models.RaffleStateComingSoon {
				t.Errorf("%s -> %s 属于回退，不应允许", from, to)
			}
		}
	}
}
