// Package scheduler 延时任务调度
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
	"github.com/smysle/sakura-raffle-go/internal/service"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
)

// HandlerFunc 任务处理函数
// 处理器必须自行校验前置条件：任务至少执行一次，可能因重试被再次派发
type HandlerFunc func(task *models.ScheduledTask) error

// Engine 延时任务执行引擎
// 单写者模型：所有任务状态变更都经由本引擎，条件更新兜底防止重复执行
type Engine struct {
	taskRepo *repository.TaskRepository
	cfg      *config.SchedulerConfig

	mu       sync.RWMutex
	handlers map[models.TaskType]HandlerFunc

	inFlightMu sync.Mutex
	inFlight   map[uint]struct{}

	nowFn func() time.Time
}

// NewEngine 创建任务执行引擎
func NewEngine(db *gorm.DB, cfg *config.SchedulerConfig) *Engine {
	return &Engine{
		taskRepo: repository.NewTaskRepository(db),
		cfg:      cfg,
		handlers: make(map[models.TaskType]HandlerFunc),
		inFlight: make(map[uint]struct{}),
		nowFn:    time.Now,
	}
}

// SetClock 注入时钟（测试用）
func (e *Engine) SetClock(nowFn func() time.Time) {
	e.nowFn = nowFn
}

// RegisterHandler 注册任务类型的处理器，重复注册覆盖旧处理器
func (e *Engine) RegisterHandler(taskType models.TaskType, handler HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[taskType] = handler
}

// handlerFor 查找任务类型对应的处理器，未注册返回带类型的错误
func (e *Engine) handlerFor(taskType models.TaskType) (HandlerFunc, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	handler, ok := e.handlers[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrHandlerNotRegistered, taskType)
	}
	return handler, nil
}

// Schedule 持久化一个延时任务
// 到期时间早于下次轮询的任务会额外用定时器快速派发，避免等一个轮询周期
func (e *Engine) Schedule(taskType models.TaskType, targetID uint, executionTime time.Time, params string) (*models.ScheduledTask, error) {
	if !taskType.Valid() {
		return nil, fmt.Errorf("%w: 未知任务类型 %s", service.ErrHandlerNotRegistered, taskType)
	}

	task := &models.ScheduledTask{
		TaskType:      taskType,
		TargetID:      targetID,
		ExecutionTime: executionTime,
		Status:        models.TaskStatusPending,
		Params:        params,
	}
	if err := e.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrDependencyFailure, err)
	}

	logger.Info().
		Uint("task_id", task.ID).
		Str("type", string(taskType)).
		Uint("target_id", targetID).
		Time("execution_time", executionTime).
		Msg("延时任务已创建")

	// 轮询间隔内到期的任务走定时器快速派发；轮询扫描会因条件更新自动去重
	delay := executionTime.Sub(e.nowFn())
	if delay < time.Duration(e.cfg.PollSeconds)*time.Second {
		if delay < 0 {
			delay = 0
		}
		id := task.ID
		time.AfterFunc(delay, func() {
			fresh, err := e.taskRepo.GetByID(id)
			if err != nil {
				logger.Warn().Err(err).Uint("task_id", id).Msg("快速派发读取任务失败")
				return
			}
			if fresh.IsDue(e.nowFn()) {
				e.executeTask(fresh)
			}
		})
	}

	return task, nil
}

// PollResult 轮询执行结果
type PollResult struct {
	Due        int // 到期任务数
	Dispatched int // 实际派发数（去除执行中的）
}

// PollOnce 扫描到期任务并执行
// 同一目标的任务按到期顺序串行并错峰，不同目标并行
func (e *Engine) PollOnce() (*PollResult, error) {
	now := e.nowFn()
	tasks, err := e.taskRepo.ListDue(now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrDependencyFailure, err)
	}

	result := &PollResult{Due: len(tasks)}
	if len(tasks) == 0 {
		return result, nil
	}

	groups := groupByTarget(tasks)
	stagger := time.Duration(e.cfg.StaggerSeconds) * time.Second

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, group := range groups {
		wg.Add(1)
		go func(group []models.ScheduledTask) {
			defer wg.Done()
			for i := range group {
				if i > 0 {
					time.Sleep(stagger)
				}
				if e.executeTask(&group[i]) {
					mu.Lock()
					result.Dispatched++
					mu.Unlock()
				}
			}
		}(group)
	}
	wg.Wait()

	return result, nil
}

// executeTask 执行单个任务，返回是否实际派发
func (e *Engine) executeTask(task *models.ScheduledTask) bool {
	e.inFlightMu.Lock()
	if _, running := e.inFlight[task.ID]; running {
		e.inFlightMu.Unlock()
		return false
	}
	e.inFlight[task.ID] = struct{}{}
	e.inFlightMu.Unlock()
	defer func() {
		e.inFlightMu.Lock()
		delete(e.inFlight, task.ID)
		e.inFlightMu.Unlock()
	}()

	handler, lookupErr := e.handlerFor(task.TaskType)

	var execErr error
	if lookupErr != nil {
		execErr = lookupErr
	} else {
		execErr = handler(task)
	}

	if execErr != nil {
		e.failTask(task, execErr)
		return true
	}

	rows, err := e.taskRepo.MarkCompleted(task.ID)
	if err != nil {
		logger.Error().Err(err).Uint("task_id", task.ID).Msg("任务完成标记失败")
		return true
	}
	if rows == 0 {
		// 已被其他路径标记（取消或重复派发），结果以数据库为准
		logger.Warn().Uint("task_id", task.ID).Msg("任务已非待执行状态，跳过完成标记")
		return true
	}

	logger.Info().
		Uint("task_id", task.ID).
		Str("type", string(task.TaskType)).
		Uint("target_id", task.TargetID).
		Msg("任务执行完成")
	return true
}

// failTask 记录失败并安排指数退避重试
// 按失败前的计数判断：retry_count 已达上限时本次为最后一次尝试，
// 首次执行加上 maxRetries 次重试，总尝试次数为 maxRetries+1
func (e *Engine) failTask(task *models.ScheduledTask, execErr error) {
	if !task.CanRetry(e.cfg.MaxRetries) {
		if err := e.taskRepo.MarkFailedFinal(task.ID, execErr.Error(), task.RetryCount+1); err != nil {
			logger.Error().Err(err).Uint("task_id", task.ID).Msg("任务失败标记失败")
			return
		}
		logger.Error().
			Err(execErr).
			Uint("task_id", task.ID).
			Str("type", string(task.TaskType)).
			Msg("任务重试次数耗尽，终止重试")
		return
	}

	next := e.nowFn().Add(nextBackoff(task.RetryCount))
	if err := e.taskRepo.MarkFailed(task.ID, execErr.Error(), task.RetryCount+1, next); err != nil {
		logger.Error().Err(err).Uint("task_id", task.ID).Msg("任务失败标记失败")
		return
	}

	logger.Warn().
		Err(execErr).
		Uint("task_id", task.ID).
		Str("type", string(task.TaskType)).
		Int("retry_count", task.RetryCount+1).
		Time("next_execution", next).
		Msg("任务执行失败，已安排重试")
}

// RetryScan 将仍可重试的失败任务重新置为待执行
func (e *Engine) RetryScan() (int64, error) {
	rearmed, err := e.taskRepo.RearmFailed(e.cfg.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrDependencyFailure, err)
	}
	if rearmed > 0 {
		logger.Info().Int64("rearmed", rearmed).Msg("失败任务已重新排队")
	}
	return rearmed, nil
}

// Cleanup 删除保留期之前的已完成任务
func (e *Engine) Cleanup() (int64, error) {
	before := e.nowFn().AddDate(0, 0, -e.cfg.CleanupDays)
	deleted, err := e.taskRepo.DeleteCompletedBefore(before)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrDependencyFailure, err)
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Msg("已清理过期的已完成任务")
	}
	return deleted, nil
}

// CancelTask 取消待执行任务；已派发或已终态的任务不可取消
func (e *Engine) CancelTask(id uint) error {
	rows, err := e.taskRepo.Cancel(id)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrDependencyFailure, err)
	}
	if rows == 0 {
		if _, err := e.taskRepo.GetByID(id); err != nil {
			return service.ErrNotFound
		}
		return service.ErrInvalidTransition
	}
	logger.Info().Uint("task_id", id).Msg("任务已取消")
	return nil
}

// ListTasks 按状态列出任务
func (e *Engine) ListTasks(status models.TaskStatus, limit int) ([]models.ScheduledTask, error) {
	tasks, err := e.taskRepo.ListByStatus(status, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrDependencyFailure, err)
	}
	return tasks, nil
}

// nextBackoff 重试退避：5 分钟起按失败次数翻倍
func nextBackoff(retryCount int) time.Duration {
	return 5 * time.Minute << uint(retryCount)
}

// groupByTarget 按目标分组，组内保持到期顺序
func groupByTarget(tasks []models.ScheduledTask) [][]models.ScheduledTask {
	index := make(map[uint]int)
	groups := make([][]models.ScheduledTask, 0)
	for _, task := range tasks {
		i, ok := index[task.TargetID]
		if !ok {
			i = len(groups)
			index[task.TargetID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], task)
	}
	return groups
}
