package service

import (
	"testing"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/pkg/utils"
)

func TestEligibleFilter(t *testing.T) {
	mk := func(id uint) models.Ticket {
		return models.Ticket{ID: id, RaffleID: 1, TicketNumber: int(id)}
	}
	tickets := []models.Ticket{mk(1), mk(2), mk(3), mk(4)}

	tests := []struct {
		name     string
		drawnIDs map[uint]bool
		want     int
	}{
		{"无已中记录时全部可参与", map[uint]bool{}, 4},
		{"排除已中票券", map[uint]bool{2: true}, 3},
		{"全部已中则为空", map[uint]bool{1: true, 2: true, 3: true, 4: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible := eligibleFilter(tickets, tt.drawnIDs)
			if len(eligible) != tt.want {
				t.Fatalf("可参与票数 = %d, 期望 %d", len(eligible), tt.want)
			}
			for _, ticket := range eligible {
				if tt.drawnIDs[ticket.ID] {
					t.Errorf("已中票券 %d 不应再次参与", ticket.ID)
				}
			}
		})
	}
}

func TestDrawResult(t *testing.T) {
	userID := int64(100)

	tests := []struct {
		name   string
		ticket models.Ticket
		want   models.DrawResult
	}{
		{"已售出票券中奖", models.Ticket{UserID: &userID, Status: models.TicketStatusSold}, models.DrawResultWinner},
		{"未售出票券轮空", models.Ticket{Status: models.TicketStatusAvailable}, models.DrawResultNoWinner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := drawResult(&tt.ticket); got != tt.want {
				t.Errorf("drawResult() = %s, 期望 %s", got, tt.want)
			}
		})
	}
}

// 相同种子下抽取结果可复现
func TestPickDeterministicWithSeed(t *testing.T) {
	tickets := make([]models.Ticket, 10)
	for i := range tickets {
		tickets[i] = models.Ticket{ID: uint(i + 1)}
	}

	p1 := utils.NewSeededPicker(42)
	p2 := utils.NewSeededPicker(42)
	for i := 0; i < 5; i++ {
		a := utils.PickIndex(p1, len(tickets))
		b := utils.PickIndex(p2, len(tickets))
		if a != b {
			t.Fatalf("第 %d 次抽取不一致: %d != %d", i+1, a, b)
		}
	}
}

func TestVerifyDraws(t *testing.T) {
	mk := func(seq int, ticketID uint, result models.DrawResult) models.RaffleDraw {
		return models.RaffleDraw{RaffleID: 1, DrawSequence: seq, TicketID: ticketID, Result: result}
	}

	tests := []struct {
		name         string
		draws        []models.RaffleDraw
		owned        map[uint]bool
		wantProblems int
	}{
		{
			"正常记录",
			[]models.RaffleDraw{
				mk(1, 10, models.DrawResultWinner),
				mk(2, 20, models.DrawResultNoWinner),
			},
			map[uint]bool{10: true, 20: false},
			0,
		},
		{
			"序号重复并缺失",
			[]models.RaffleDraw{
				mk(1, 10, models.DrawResultWinner),
				mk(1, 20, models.DrawResultNoWinner),
			},
			map[uint]bool{10: true, 20: false},
			2, // 序号 1 重复 + 序号 2 缺失
		},
		{
			"一张票出现在多条记录",
			[]models.RaffleDraw{
				mk(1, 10, models.DrawResultWinner),
				mk(2, 10, models.DrawResultWinner),
			},
			map[uint]bool{10: true},
			1,
		},
		{
			"结果与归属不符",
			[]models.RaffleDraw{
				mk(1, 10, models.DrawResultWinner),
			},
			map[uint]bool{10: false},
			1,
		},
		{
			"空记录",
			nil,
			map[uint]bool{},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := verifyDraws(tt.draws, tt.owned)
			if len(problems) != tt.wantProblems {
				t.Errorf("问题数 = %d (%v), 期望 %d", len(problems), problems, tt.wantProblems)
			}
		})
	}
}
