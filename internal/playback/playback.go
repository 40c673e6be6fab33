// Package playback 管理每个播放会话持有的合成音频。
//
// 每个会话是一个 Slot，同一时刻至多持有一个 Resource。替换、关闭、
// 过期或进程退出时释放旧资源，且每个资源只释放一次。
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/iabetor/mathspeech/internal/logger"
)

// Resource 是会话持有的一段音频，Release 幂等。
type Resource struct {
	Key     string
	once    sync.Once
	release func()
}

// NewResource 创建资源，release 为 nil 时释放是空操作。
func NewResource(key string, release func()) *Resource {
	return &Resource{Key: key, release: release}
}

// Release 释放资源，多次调用只生效一次。
func (r *Resource) Release() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		if r.release != nil {
			r.release()
		}
	})
}

// Slot 是单个播放会话。
type Slot struct {
	ID string

	mu       sync.Mutex
	res      *Resource
	lastUsed time.Time
	closed   bool
}

// Replace 安装新资源，先释放旧资源。
// 会话已关闭时直接释放 res。
func (s *Slot) Replace(res *Resource) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		res.Release()
		return
	}
	prev := s.res
	s.res = res
	s.mu.Unlock()

	if prev != nil && prev != res {
		prev.Release()
	}
}

// Current 返回当前持有的资源，可能为 nil。
func (s *Slot) Current() *Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res
}

// Close 释放持有的资源，之后的 Replace 不再生效。
func (s *Slot) Close() {
	s.mu.Lock()
	res := s.res
	s.res = nil
	s.closed = true
	s.mu.Unlock()

	res.Release()
}

func (s *Slot) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Slot) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}

// Registry 按会话 ID 管理 Slot。
type Registry struct {
	mu    sync.Mutex
	slots map[string]*Slot
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry 创建会话表，ttl <= 0 表示会话不过期。
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		slots: make(map[string]*Slot),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Slot 返回会话，不存在时创建，并刷新活跃时间。
func (r *Registry) Slot(id string) *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s, ok := r.slots[id]
	if !ok {
		s = &Slot{ID: id, lastUsed: now}
		r.slots[id] = s
		logger.Debugf("[playback] 新会话: %s", id)
		return s
	}
	s.touch(now)
	return s
}

// Close 关闭并移除会话，返回会话是否存在。
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.slots[id]
	delete(r.slots, id)
	r.mu.Unlock()

	if ok {
		s.Close()
		logger.Debugf("[playback] 会话已关闭: %s", id)
	}
	return ok
}

// Len 返回当前会话数量。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Sweep 关闭空闲超过 ttl 的会话，返回关闭数量。
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}

	now := r.now()
	var expired []*Slot
	r.mu.Lock()
	for id, s := range r.slots {
		if s.idleSince(now) > r.ttl {
			expired = append(expired, s)
			delete(r.slots, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		logger.Infof("[playback] 清理 %d 个过期会话", len(expired))
	}
	return len(expired)
}

// CloseAll 关闭所有会话。
func (r *Registry) CloseAll() {
	r.mu.Lock()
	slots := r.slots
	r.slots = make(map[string]*Slot)
	r.mu.Unlock()

	for _, s := range slots {
		s.Close()
	}
}

// Run 周期性清理过期会话，ctx 取消后关闭所有会话并返回。
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
