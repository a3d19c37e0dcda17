// Package utils 随机抽取工具测试
package utils

import (
	"testing"
)

func TestSampleIndexes(t *testing.T) {
	tests := []struct {
		name string
		n    int
		k    int
	}{
		{"抽取部分", 10, 3},
		{"抽取全部", 5, 5},
		{"抽取一个", 7, 1},
		{"抽取零个", 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSeededPicker(42)
			got := SampleIndexes(p, tt.n, tt.k)

			if len(got) != tt.k {
				t.Fatalf("SampleIndexes(%d, %d) 返回 %d 个下标，期望 %d", tt.n, tt.k, len(got), tt.k)
			}

			// 下标必须互不相同且在范围内
			seen := make(map[int]bool)
			for _, i := range got {
				if i < 0 || i >= tt.n {
					t.Errorf("下标 %d 越界 [0, %d)", i, tt.n)
				}
				if seen[i] {
					t.Errorf("下标 %d 重复出现", i)
				}
				seen[i] = true
			}
		})
	}
}

func TestSampleIndexes_KGreaterThanN(t *testing.T) {
	p := NewSeededPicker(1)
	if got := SampleIndexes(p, 3, 5); got != nil {
		t.Errorf("k > n 时应返回 nil，实际返回 %v", got)
	}
}

func TestSampleIndexes_Deterministic(t *testing.T) {
	a := SampleIndexes(NewSeededPicker(7), 20, 6)
	b := SampleIndexes(NewSeededPicker(7), 20, 6)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("相同种子应产生相同结果: %v != %v", a, b)
		}
	}
}

func TestPickIndex_Range(t *testing.T) {
	p := NewSeededPicker(99)
	for i := 0; i < 100; i++ {
		if got := PickIndex(p, 8); got < 0 || got >= 8 {
			t.Fatalf("PickIndex 越界: %d", got)
		}
	}
}
