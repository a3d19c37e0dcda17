// Package models 延时任务模型测试
package models

import (
	"testing"
	"time"
)

func TestScheduledTask_IsDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		task     *ScheduledTask
		expected bool
	}{
		{"到期的待执行任务", &ScheduledTask{Status: TaskStatusPending, ExecutionTime: now.Add(-time.Minute)}, true},
		{"恰好到执行时刻", &ScheduledTask{Status: TaskStatusPending, ExecutionTime: now}, true},
		{"未到期", &ScheduledTask{Status: TaskStatusPending, ExecutionTime: now.Add(time.Minute)}, false},
		{"已完成任务不再到期", &ScheduledTask{Status: TaskStatusCompleted, ExecutionTime: now.Add(-time.Hour)}, false},
		{"已取消任务不再到期", &ScheduledTask{Status: TaskStatusCancelled, ExecutionTime: now.Add(-time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsDue(now); got != tt.expected {
				t.Errorf("IsDue() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScheduledTask_DecodeDrawParams(t *testing.T) {
	tests := []struct {
		name        string
		params      string
		wantCount   int
		wantRequest string
	}{
		{"空参数使用默认值", "", 1, "scheduler"},
		{"完整参数", `{"count":5,"requested_by":"admin"}`, 5, "admin"},
		{"非法 JSON 回退默认值", `{count:`, 1, "scheduler"},
		{"非正数次数回退为 1", `{"count":0}`, 1, "scheduler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &ScheduledTask{Params: tt.params}
			got := task.DecodeDrawParams()
			if got.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", got.Count, tt.wantCount)
			}
			if got.RequestedBy != tt.wantRequest {
				t.Errorf("RequestedBy = %s, want %s", got.RequestedBy, tt.wantRequest)
			}
		})
	}
}

func TestTaskType_Valid(t *testing.T) {
	if !TaskStateTransition.Valid() || !TaskDrawExecution.Valid() {
		t.Error("已注册的任务类型应判定有效")
	}
	if TaskType("unknown").Valid() {
		t.Error("未知任务类型应判定无效")
	}
}
