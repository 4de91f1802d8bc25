package tracking

import "sync"

// MemStore 是 Store 的内存实现，生命周期与所属 Tracker 一致，
// 对应浏览器标签页存储"同会话保留、关闭即清空"的语义。
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore 创建空的 MemStore。
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Get 读取键值。
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set 写入键值。
func (s *MemStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Clear 清空全部键值，模拟标签页存储被清除。
func (s *MemStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}
