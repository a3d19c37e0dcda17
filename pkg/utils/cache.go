// Package utils 缓存工具
package utils

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache 全局缓存实例
var Cache *cache.Cache

func init() {
	// 默认过期时间 30 秒，清理间隔 5 分钟
	Cache = cache.New(30*time.Second, 5*time.Minute)
}

// WinnersCacheKey 中奖名单缓存键
func WinnersCacheKey(raffleID uint) string {
	return fmt.Sprintf("raffle:%d:winners", raffleID)
}

// CacheDelete 删除缓存
func CacheDelete(key string) {
	Cache.Delete(key)
}

// CacheGetOrSet 获取或设置缓存
func CacheGetOrSet(key string, duration time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if val, found := Cache.Get(key); found {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return nil, err
	}

	Cache.Set(key, val, duration)
	return val, nil
}
