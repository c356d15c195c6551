package domain

import (
	"sort"
	"sync"
)

// SeenNames 记录本次运行中已经派发过下载任务的 base name。
//
// 约束：
// - 只增不删，不跨运行持久化
// - TryAdd 的“检查 + 插入”在同一把锁内完成，同名最多只有一个调用方拿到 true
// - 零值可直接使用，并发安全
type SeenNames struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewSeenNames 构造一个空集合；也可以直接使用零值。
func NewSeenNames() *SeenNames {
	return &SeenNames{names: make(map[string]struct{}, 64)}
}

// TryAdd 在 name 尚未出现时记录它并返回 true；已出现则返回 false。
func (s *SeenNames) TryAdd(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names == nil {
		s.names = make(map[string]struct{}, 64)
	}
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

func (s *SeenNames) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.names[name]
	return ok
}

func (s *SeenNames) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// Names 返回已记录名字的快照（字典序，保证稳定）。
func (s *SeenNames) Names() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}
