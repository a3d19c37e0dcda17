// Package config 配置管理模块
package config

import (
	"encoding/json"
	"os"
	"sync"
)

// Config 全局配置结构
type Config struct {
	AppName string  `json:"app_name"`
	Owner   int64   `json:"owner"`
	Admins  []int64 `json:"admins"`
	Money   string  `json:"money"`

	Database    DatabaseConfig    `json:"database"`
	Reservation ReservationConfig `json:"reservation"`
	Draw        DrawConfig        `json:"draw"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Notify      NotifyConfig      `json:"notify"`
	Payment     PaymentConfig     `json:"payment"`
	API         APIConfig         `json:"api"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ReservationConfig 票券预订配置
type ReservationConfig struct {
	TimeoutMinutes int `json:"timeout_minutes"` // 预订保留时长
	SweepSeconds   int `json:"sweep_seconds"`   // 过期清理间隔
	MaxQuantity    int `json:"max_quantity"`    // 单次最多预订张数
}

// DrawConfig 开奖配置
type DrawConfig struct {
	FontPath string `json:"font_path"` // 中奖榜图片字体文件，留空使用默认字体
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	PollSeconds      int    `json:"poll_seconds"`       // 到期任务轮询间隔
	StaggerSeconds   int    `json:"stagger_seconds"`    // 同目标任务错峰间隔
	MaxRetries       int    `json:"max_retries"`        // 任务最大重试次数
	RetryScanMinutes int    `json:"retry_scan_minutes"` // 失败任务重试扫描间隔
	CleanupDays      int    `json:"cleanup_days"`       // 已完成任务保留天数
	CleanupAt        string `json:"cleanup_at"`         // 每日清理时刻
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	WebhookURL string `json:"webhook_url"` // 为空则不启用 Webhook 通知

	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig Telegram 频道通知配置
type TelegramConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token"`
	ChannelID int64  `json:"channel_id"`
}

// PaymentConfig 支付服务配置
type PaymentConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Enabled      bool     `json:"enabled"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

var (
	cfg     *Config
	cfgLock sync.RWMutex
)

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// 设置默认值
	config.setDefaults()

	cfgLock.Lock()
	cfg = &config
	cfgLock.Unlock()

	return &config, nil
}

// Get 获取全局配置（线程安全）
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.AppName == "" {
		c.AppName = "Sakura Raffle"
	}
	if c.Money == "" {
		c.Money = "花币"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Reservation.TimeoutMinutes == 0 {
		c.Reservation.TimeoutMinutes = 5
	}
	if c.Reservation.SweepSeconds == 0 {
		c.Reservation.SweepSeconds = 60
	}
	if c.Reservation.MaxQuantity == 0 {
		c.Reservation.MaxQuantity = 50
	}
	if c.Scheduler.PollSeconds == 0 {
		c.Scheduler.PollSeconds = 60
	}
	if c.Scheduler.StaggerSeconds == 0 {
		c.Scheduler.StaggerSeconds = 3
	}
	if c.Scheduler.MaxRetries == 0 {
		c.Scheduler.MaxRetries = 3
	}
	if c.Scheduler.RetryScanMinutes == 0 {
		c.Scheduler.RetryScanMinutes = 5
	}
	if c.Scheduler.CleanupDays == 0 {
		c.Scheduler.CleanupDays = 7
	}
	if c.Scheduler.CleanupAt == "" {
		c.Scheduler.CleanupAt = "04:00"
	}
	if c.API.Port == 0 {
		c.API.Port = 8838
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}
}

// IsAdmin 判断是否是管理员
func (c *Config) IsAdmin(userID int64) bool {
	if userID == c.Owner {
		return true
	}
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// IsOwner 判断是否是所有者
func (c *Config) IsOwner(userID int64) bool {
	return userID == c.Owner
}

// AddAdmin 添加管理员，已存在时返回 false
func (c *Config) AddAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return false
		}
	}
	c.Admins = append(c.Admins, userID)
	return true
}

// RemoveAdmin 移除管理员，不存在时返回 false
func (c *Config) RemoveAdmin(userID int64) bool {
	for i, id := range c.Admins {
		if id == userID {
			c.Admins = append(c.Admins[:i], c.Admins[i+1:]...)
			return true
		}
	}
	return false
}
