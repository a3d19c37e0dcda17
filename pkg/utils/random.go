// Package utils 随机抽取工具
package utils

import (
	"math/rand"
	"sync"
	"time"
)

// Picker 随机源接口，测试时可注入固定种子的实现
type Picker interface {
	Intn(n int) int
}

// lockedPicker 并发安全的随机源
type lockedPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (p *lockedPicker) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// NewPicker 创建默认随机源（时间种子）
func NewPicker() Picker {
	return &lockedPicker{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededPicker 创建固定种子的随机源（用于测试）
func NewSeededPicker(seed int64) Picker {
	return &lockedPicker{rng: rand.New(rand.NewSource(seed))}
}

// PickIndex 从 n 个候选中等概率抽取一个下标
func PickIndex(p Picker, n int) int {
	return p.Intn(n)
}

// SampleIndexes 从 n 个候选中等概率不放回抽取 k 个下标
// 采用部分 Fisher-Yates 洗牌，k > n 时返回 nil
func SampleIndexes(p Picker, n, k int) []int {
	if k < 0 || k > n {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	for i := 0; i < k; i++ {
		j := i + p.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	return idx[:k]
}
