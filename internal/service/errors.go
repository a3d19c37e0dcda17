// Package service 业务错误定义
package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound              = errors.New("记录不存在")
	ErrInvalidTransition     = errors.New("当前状态不允许该变更")
	ErrRaffleNotOpen         = errors.New("活动不在售票阶段")
	ErrInvalidQuantity       = errors.New("无效的预订数量")
	ErrInsufficientInventory = errors.New("可售票券不足")
	ErrReservationExpired    = errors.New("预订已过期")
	ErrAllDrawsComplete      = errors.New("开奖次数已达上限")
	ErrNoEligibleTickets     = errors.New("没有可参与开奖的票券")
	ErrConcurrencyConflict   = errors.New("并发冲突，请重试")
	ErrHandlerNotRegistered  = errors.New("未注册的任务类型")
	ErrDependencyFailure     = errors.New("依赖服务调用失败")
)

// translateDBError 将持久层错误映射为业务错误
func translateDBError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrDependencyFailure, err)
}
