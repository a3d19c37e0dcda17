package scheduler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/service"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		want       time.Duration
	}{
		{"首次失败 5 分钟", 0, 5 * time.Minute},
		{"第二次失败 10 分钟", 1, 10 * time.Minute},
		{"第三次失败 20 分钟", 2, 20 * time.Minute},
		{"第四次失败 40 分钟", 3, 40 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextBackoff(tt.retryCount); got != tt.want {
				t.Errorf("nextBackoff(%d) = %v, 期望 %v", tt.retryCount, got, tt.want)
			}
		})
	}
}

// 重试时间线：首次执行加三次退避重试共四次尝试，之后终止
// 最后一次失败不再计算退避时间
func TestRetryTimeline(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	task := models.ScheduledTask{RetryCount: 0, ExecutionTime: base}
	maxRetries := 3

	attempts := 0
	var rearms []time.Time
	now := base
	for {
		attempts++ // 本次执行失败
		if !task.CanRetry(maxRetries) {
			task.RetryCount++
			break
		}
		next := now.Add(nextBackoff(task.RetryCount))
		task.RetryCount++
		task.ExecutionTime = next
		rearms = append(rearms, next)
		now = next
	}

	if attempts != maxRetries+1 {
		t.Fatalf("总尝试次数 = %d, 期望 %d", attempts, maxRetries+1)
	}
	want := []time.Time{
		base.Add(5 * time.Minute),
		base.Add(15 * time.Minute),
		base.Add(35 * time.Minute),
	}
	if len(rearms) != len(want) {
		t.Fatalf("重试次数 = %d, 期望 %d", len(rearms), len(want))
	}
	for i := range want {
		if !rearms[i].Equal(want[i]) {
			t.Errorf("第 %d 次重试时间 = %v, 期望 %v", i+1, rearms[i], want[i])
		}
	}
	if task.RetryCount != maxRetries+1 {
		t.Errorf("最终 retry_count = %d, 期望 %d", task.RetryCount, maxRetries+1)
	}
}

// 未注册类型的任务必须拿到带类型名的错误，派发循环不能中断
func TestHandlerLookup(t *testing.T) {
	e := NewEngine(nil, &config.SchedulerConfig{MaxRetries: 3})
	e.RegisterHandler(models.TaskStateTransition, func(*models.ScheduledTask) error { return nil })

	if _, err := e.handlerFor(models.TaskStateTransition); err != nil {
		t.Errorf("已注册类型查找失败: %v", err)
	}

	_, err := e.handlerFor(models.TaskDrawExecution)
	if !errors.Is(err, service.ErrHandlerNotRegistered) {
		t.Fatalf("未注册类型错误 = %v, 期望 ErrHandlerNotRegistered", err)
	}
	if !strings.Contains(err.Error(), string(models.TaskDrawExecution)) {
		t.Errorf("错误信息未包含任务类型: %v", err)
	}
}

func TestGroupByTarget(t *testing.T) {
	mk := func(id, target uint) models.ScheduledTask {
		return models.ScheduledTask{ID: id, TargetID: target}
	}

	tests := []struct {
		name       string
		tasks      []models.ScheduledTask
		wantGroups int
	}{
		{"空列表", nil, 0},
		{"单目标多任务", []models.ScheduledTask{mk(1, 10), mk(2, 10), mk(3, 10)}, 1},
		{"多目标", []models.ScheduledTask{mk(1, 10), mk(2, 20), mk(3, 10), mk(4, 30)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := groupByTarget(tt.tasks)
			if len(groups) != tt.wantGroups {
				t.Fatalf("分组数 = %d, 期望 %d", len(groups), tt.wantGroups)
			}
			for _, group := range groups {
				target := group[0].TargetID
				for i, task := range group {
					if task.TargetID != target {
						t.Errorf("组内出现不同目标: %d != %d", task.TargetID, target)
					}
					if i > 0 && task.ID < group[i-1].ID {
						t.Errorf("组内顺序被打乱: %d 在 %d 之后", task.ID, group[i-1].ID)
					}
				}
			}
		})
	}
}

// 同一目标的任务必须落在同一组，保证串行执行
func TestGroupByTargetSerializesSameTarget(t *testing.T) {
	tasks := []models.ScheduledTask{
		{ID: 1, TargetID: 7},
		{ID: 2, TargetID: 8},
		{ID: 3, TargetID: 7},
	}
	groups := groupByTarget(tasks)

	for _, group := range groups {
		if group[0].TargetID == 7 && len(group) != 2 {
			t.Errorf("目标 7 的任务数 = %d, 期望 2", len(group))
		}
	}
}
