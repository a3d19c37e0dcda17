package service

import (
	"errors"
	"testing"
	"time"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
)

func TestReservationQuantityValidation(t *testing.T) {
	cfg := &config.Config{}
	cfg.Reservation.TimeoutMinutes = 5
	cfg.Reservation.MaxQuantity = 50
	svc := &ReservationService{cfg: cfg}

	tests := []struct {
		name     string
		quantity int
	}{
		{"数量为零", 0},
		{"数量为负", -3},
		{"超过上限", 51},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(100, 1, tt.quantity)
			if !errors.Is(err, ErrInvalidQuantity) {
				t.Errorf("Create(quantity=%d) err = %v, 期望 ErrInvalidQuantity", tt.quantity, err)
			}
		})
	}
}

func TestReservationTimeout(t *testing.T) {
	cfg := &config.Config{}
	cfg.Reservation.TimeoutMinutes = 5
	svc := &ReservationService{cfg: cfg}

	if got := svc.timeout(); got != 5*time.Minute {
		t.Errorf("timeout() = %v, 期望 5m", got)
	}
}

func TestReservationIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"未到期", now.Add(time.Minute), false},
		{"恰好到期时刻不算过期", now, false},
		{"已过期", now.Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := models.TicketReservation{ExpiresAt: tt.expiresAt}
			if got := res.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

// 完成动作按预订状态分派：已完成的短路成功，终态预订拒绝
func TestReservationCompletionStep(t *testing.T) {
	tests := []struct {
		name     string
		status   models.ReservationStatus
		wantDone bool
		wantErr  error
	}{
		{"待支付继续完成流程", models.ReservationStatusPending, false, nil},
		{"已完成直接视为成功", models.ReservationStatusCompleted, true, nil},
		{"已过期拒绝", models.ReservationStatusExpired, false, ErrReservationExpired},
		{"已取消拒绝", models.ReservationStatusCancelled, false, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := completionStep(tt.status)
			if done != tt.wantDone {
				t.Errorf("completionStep(%s) done = %v, 期望 %v", tt.status, done, tt.wantDone)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("completionStep(%s) err = %v, 期望 nil", tt.status, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("completionStep(%s) err = %v, 期望 %v", tt.status, err, tt.wantErr)
			}
		})
	}
}

// 重复完成等价于完成一次：完成后的预订再次走完成判定仍是成功且无错误
func TestReservationCompleteIdempotent(t *testing.T) {
	status := models.ReservationStatusPending
	for i := 0; i < 2; i++ {
		done, err := completionStep(status)
		if err != nil {
			t.Fatalf("第 %d 次完成判定出错: %v", i+1, err)
		}
		if i == 0 && done {
			t.Fatal("待支付预订不应短路")
		}
		if i > 0 && !done {
			t.Fatal("已完成预订重复完成应短路成功")
		}
		status = models.ReservationStatusCompleted
	}
}

func TestReservationTicketIDsRoundTrip(t *testing.T) {
	var res models.TicketReservation
	if err := res.SetTicketIDs([]uint{3, 7, 11}); err != nil {
		t.Fatalf("SetTicketIDs 失败: %v", err)
	}
	if res.Quantity != 3 {
		t.Errorf("Quantity = %d, 期望 3", res.Quantity)
	}

	ids, err := res.TicketIDList()
	if err != nil {
		t.Fatalf("TicketIDList 失败: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 7 || ids[2] != 11 {
		t.Errorf("TicketIDList = %v, 期望 [3 7 11]", ids)
	}
}
