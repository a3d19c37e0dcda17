// Package service 外部协作方契约
package service

import (
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
)

// TaskScheduler 延时任务调度契约，由调度引擎实现
type TaskScheduler interface {
	Schedule(taskType models.TaskType, targetID uint, executionTime time.Time, params string) (*models.ScheduledTask, error)
}

// Notifier 事件通知契约，实现方必须自行消化错误（发送失败不影响核心事务）
type Notifier interface {
	RaffleStateChanged(raffle *models.Raffle, previous models.RaffleState, reason string)
	DrawCompleted(raffle *models.Raffle, draw *models.RaffleDraw)
}

// NopNotifier 空实现
type NopNotifier struct{}

func (NopNotifier) RaffleStateChanged(*models.Raffle, models.RaffleState, string) {}
func (NopNotifier) DrawCompleted(*models.Raffle, *models.RaffleDraw)              {}

// PrizePoolAllocator 奖池分配契约
// 读方法不依赖事务；分配方法必须在开奖事务内执行
type PrizePoolAllocator interface {
	IsLocked(poolID uint) (bool, error)
	DrawInstanceCount(poolID uint) (int, error)
	NextDrawInstance(tx *gorm.DB, poolID uint) (*models.PrizeInstance, error)
	AssignInstance(tx *gorm.DB, instanceID, ticketID uint, at time.Time) error
}
