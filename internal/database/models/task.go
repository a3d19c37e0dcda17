// Package models 延时任务数据模型
package models

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型（封闭枚举，调度器按类型分发到已注册处理器）
type TaskType string

const (
	TaskStateTransition TaskType = "state_transition"
	TaskDrawExecution   TaskType = "draw_execution"
)

// Valid 是否为已知任务类型
func (t TaskType) Valid() bool {
	switch t {
	case TaskStateTransition, TaskDrawExecution:
		return true
	}
	return false
}

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ScheduledTask 延时任务表
type ScheduledTask struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskType      TaskType   `gorm:"column:task_type;size:32;index" json:"task_type"`
	TargetID      uint       `gorm:"column:target_id;index" json:"target_id"`
	ExecutionTime time.Time  `gorm:"column:execution_time;index:idx_status_execution" json:"execution_time"`
	Status        TaskStatus `gorm:"column:status;size:20;default:'pending';index:idx_status_execution" json:"status"`
	RetryCount    int        `gorm:"column:retry_count;default:0" json:"retry_count"`
	LastError     string     `gorm:"column:last_error;size:1000" json:"last_error,omitempty"`
	Params        string     `gorm:"column:params;size:2000" json:"params,omitempty"` // JSON，由处理器解释
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (ScheduledTask) TableName() string {
	return "scheduled_tasks"
}

// IsDue 任务是否到期
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Status == TaskStatusPending && !t.ExecutionTime.After(now)
}

// CanRetry 是否还可重试，按已失败次数判断
// 首次执行不计入 retry_count，任务共有 maxRetries+1 次尝试机会
func (t *ScheduledTask) CanRetry(maxRetries int) bool {
	return t.RetryCount < maxRetries
}

// DrawTaskParams 开奖任务参数
type DrawTaskParams struct {
	Count       int    `json:"count"`
	RequestedBy string `json:"requested_by"`
}

// DecodeDrawParams 解析开奖任务参数，缺省为 1 次
func (t *ScheduledTask) DecodeDrawParams() DrawTaskParams {
	params := DrawTaskParams{Count: 1, RequestedBy: "scheduler"}
	if t.Params == "" {
		return params
	}
	if err := json.Unmarshal([]byte(t.Params), &params); err != nil {
		return DrawTaskParams{Count: 1, RequestedBy: "scheduler"}
	}
	if params.Count <= 0 {
		params.Count = 1
	}
	if params.RequestedBy == "" {
		params.RequestedBy = "scheduler"
	}
	return params
}
