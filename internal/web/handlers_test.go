package web

import (
	"testing"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
)

// 名单图片条目必须完整保留轮空记录，且轮空不显示中奖样式
func TestWinnersBoardItems(t *testing.T) {
	winnerUser := int64(42)
	rows := []repository.WinnerRow{
		{DrawSequence: 1, TicketNumber: 7, UserID: &winnerUser, Result: models.DrawResultWinner, PrizeName: "一等奖"},
		{DrawSequence: 2, TicketNumber: 13, Result: models.DrawResultNoWinner},
	}

	items := winnersBoardItems(rows)
	if len(items) != 2 {
		t.Fatalf("条目数 = %d, 期望 2（轮空记录不能丢弃）", len(items))
	}

	if !items[0].IsWinner {
		t.Error("中奖记录 IsWinner 应为 true")
	}
	if items[0].Username == "" {
		t.Error("中奖记录应带用户名")
	}

	if items[1].IsWinner {
		t.Error("轮空记录 IsWinner 应为 false")
	}
	if items[1].Username != "" {
		t.Errorf("轮空记录不应有用户名, 得到 %q", items[1].Username)
	}
	if items[1].Sequence != 2 || items[1].TicketNumber != 13 {
		t.Errorf("轮空条目序号/票号 = %d/%d, 期望 2/13", items[1].Sequence, items[1].TicketNumber)
	}
}
