// Package notify 事件通知
// 所有通知都是尽力而为：发送失败只记录日志，绝不影响核心事务
package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/service"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
	"github.com/smysle/sakura-raffle-go/pkg/utils"
)

// Build 根据配置组装通知器
func Build(cfg *config.NotifyConfig) service.Notifier {
	var notifiers []service.Notifier

	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(cfg.WebhookURL))
		logger.Info().Str("url", cfg.WebhookURL).Msg("已启用 Webhook 通知")
	}

	if cfg.Telegram.Enabled {
		tg, err := NewTelegramNotifier(&cfg.Telegram)
		if err != nil {
			logger.Error().Err(err).Msg("Telegram 通知器初始化失败，已禁用")
		} else {
			notifiers = append(notifiers, tg)
			logger.Info().Int64("channel_id", cfg.Telegram.ChannelID).Msg("已启用 Telegram 频道通知")
		}
	}

	switch len(notifiers) {
	case 0:
		return service.NopNotifier{}
	case 1:
		return notifiers[0]
	default:
		return Multi(notifiers)
	}
}

// Multi 依次调用多个通知器
type Multi []service.Notifier

func (m Multi) RaffleStateChanged(raffle *models.Raffle, previous models.RaffleState, reason string) {
	for _, n := range m {
		n.RaffleStateChanged(raffle, previous, reason)
	}
}

func (m Multi) DrawCompleted(raffle *models.Raffle, draw *models.RaffleDraw) {
	for _, n := range m {
		n.DrawCompleted(raffle, draw)
	}
}

// WebhookNotifier 将事件以 JSON 推送到外部 Webhook
type WebhookNotifier struct {
	url    string
	client *resty.Client
}

// NewWebhookNotifier 创建 Webhook 通知器
func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(3 * time.Second)

	return &WebhookNotifier{url: url, client: client}
}

// webhookEvent Webhook 事件体
type webhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// RaffleStateChanged 推送状态变更事件
func (w *WebhookNotifier) RaffleStateChanged(raffle *models.Raffle, previous models.RaffleState, reason string) {
	w.post(&webhookEvent{
		Event:     "raffle.state_changed",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"raffle_id":      raffle.ID,
			"title":          raffle.Title,
			"previous_state": previous,
			"new_state":      raffle.State,
			"reason":         reason,
		},
	})
}

// DrawCompleted 推送开奖完成事件
func (w *WebhookNotifier) DrawCompleted(raffle *models.Raffle, draw *models.RaffleDraw) {
	w.post(&webhookEvent{
		Event:     "raffle.draw_completed",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"raffle_id":     raffle.ID,
			"title":         raffle.Title,
			"draw_sequence": draw.DrawSequence,
			"ticket_id":     draw.TicketID,
			"result":        draw.Result,
		},
	})
}

// post 异步推送事件
func (w *WebhookNotifier) post(event *webhookEvent) {
	go func() {
		resp, err := w.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(event).
			Post(w.url)
		if err != nil {
			logger.Warn().Err(err).Str("event", event.Event).Msg("Webhook 推送失败")
			return
		}
		if resp.StatusCode() >= 300 {
			logger.Warn().
				Int("status", resp.StatusCode()).
				Str("event", event.Event).
				Msg("Webhook 推送被拒绝")
		}
	}()
}

// TelegramNotifier 向 Telegram 频道发送公告
type TelegramNotifier struct {
	bot       *tele.Bot
	channelID int64
}

// NewTelegramNotifier 创建 Telegram 通知器（仅发送，不接收更新）
func NewTelegramNotifier(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Telegram Bot 失败: %w", err)
	}

	return &TelegramNotifier{bot: bot, channelID: cfg.ChannelID}, nil
}

// stateLabels 运行阶段的公告文案
var stateLabels = map[models.RaffleState]string{
	models.RaffleStateDraft:      "未发布",
	models.RaffleStateComingSoon: "即将开售",
	models.RaffleStateOpen:       "火热售票中",
	models.RaffleStatePaused:     "暂停售票",
	models.RaffleStateEnded:      "已结束",
}

// RaffleStateChanged 向频道发送状态变更公告
func (t *TelegramNotifier) RaffleStateChanged(raffle *models.Raffle, previous models.RaffleState, reason string) {
	label, ok := stateLabels[raffle.State]
	if !ok {
		label = string(raffle.State)
	}

	text := fmt.Sprintf(
		"🎟 **%s**\n\n当前状态: %s\n票价: %s",
		raffle.Title,
		label,
		utils.FormatAmount(raffle.TicketPrice),
	)
	if raffle.State == models.RaffleStateOpen {
		if remaining := time.Until(raffle.EndTime); remaining > 0 {
			text += fmt.Sprintf("\n剩余时间: %s", utils.FormatDuration(remaining))
		}
	}
	t.send(text)
}

// DrawCompleted 向频道发送开奖公告
func (t *TelegramNotifier) DrawCompleted(raffle *models.Raffle, draw *models.RaffleDraw) {
	var text string
	if draw.IsWinner() {
		text = fmt.Sprintf(
			"🎉 **%s 第 %d 次开奖**\n\n中奖票券 ID: %d",
			raffle.Title,
			draw.DrawSequence,
			draw.TicketID,
		)
	} else {
		text = fmt.Sprintf(
			"🎲 **%s 第 %d 次开奖**\n\n本次未售出票券被抽中，奖品轮空",
			raffle.Title,
			draw.DrawSequence,
		)
	}
	t.send(text)
}

// send 异步发送到频道
func (t *TelegramNotifier) send(text string) {
	go func() {
		chat := &tele.Chat{ID: t.channelID}
		if _, err := t.bot.Send(chat, text, tele.ModeMarkdown); err != nil {
			logger.Warn().Err(err).Msg("Telegram 频道消息发送失败")
		}
	}()
}
