// Package repository 延时任务数据仓库
package repository

import (
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
)

// TaskRepository 延时任务仓库
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建延时任务仓库
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx 绑定到事务
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

// Create 创建任务
func (r *TaskRepository) Create(task *models.ScheduledTask) error {
	return r.db.Create(task).Error
}

// GetByID 根据 ID 获取任务
func (r *TaskRepository) GetByID(id uint) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListDue 获取到期的待执行任务
func (r *TaskRepository) ListDue(now time.Time) ([]models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	err := r.db.Where("status = ? AND execution_time <= ?", models.TaskStatusPending, now).
		Order("execution_time ASC").Find(&tasks).Error
	return tasks, err
}

// MarkCompleted 将待执行任务置为已完成（条件更新，防止重复标记）
func (r *TaskRepository) MarkCompleted(id uint) (int64, error) {
	result := r.db.Model(&models.ScheduledTask{}).
		Where("id = ? AND status = ?", id, models.TaskStatusPending).
		Update("status", models.TaskStatusCompleted)
	return result.RowsAffected, result.Error
}

// MarkFailed 记录任务失败：错误信息、重试次数与下次可执行时间
func (r *TaskRepository) MarkFailed(id uint, errMsg string, retryCount int, nextExecution time.Time) error {
	return r.db.Model(&models.ScheduledTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.TaskStatusFailed,
			"last_error":     errMsg,
			"retry_count":    retryCount,
			"execution_time": nextExecution,
		}).Error
}

// MarkFailedFinal 重试耗尽的最终失败，不再改写执行时间
func (r *TaskRepository) MarkFailedFinal(id uint, errMsg string, retryCount int) error {
	return r.db.Model(&models.ScheduledTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.TaskStatusFailed,
			"last_error":  errMsg,
			"retry_count": retryCount,
		}).Error
}

// RearmFailed 将仍可重试的失败任务重新置为待执行，返回生效行数
// retry_count 记录的是已失败次数，超过 maxRetries 说明重试已耗尽
func (r *TaskRepository) RearmFailed(maxRetries int) (int64, error) {
	result := r.db.Model(&models.ScheduledTask{}).
		Where("status = ? AND retry_count <= ?", models.TaskStatusFailed, maxRetries).
		Update("status", models.TaskStatusPending)
	return result.RowsAffected, result.Error
}

// Cancel 取消待执行任务（已派发的任务不可取消）
func (r *TaskRepository) Cancel(id uint) (int64, error) {
	result := r.db.Model(&models.ScheduledTask{}).
		Where("id = ? AND status = ?", id, models.TaskStatusPending).
		Update("status", models.TaskStatusCancelled)
	return result.RowsAffected, result.Error
}

// DeleteCompletedBefore 删除指定时间之前已完成的任务，返回删除行数
func (r *TaskRepository) DeleteCompletedBefore(before time.Time) (int64, error) {
	result := r.db.Where("status = ? AND updated_at < ?", models.TaskStatusCompleted, before).
		Delete(&models.ScheduledTask{})
	return result.RowsAffected, result.Error
}

// ListByStatus 按状态获取任务
func (r *TaskRepository) ListByStatus(status models.TaskStatus, limit int) ([]models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	err := r.db.Where("status = ?", status).
		Order("execution_time ASC").Limit(limit).Find(&tasks).Error
	return tasks, err
}
