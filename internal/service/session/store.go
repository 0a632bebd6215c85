package session

import (
	"sync"
	"time"

	"sheetmerge/internal/service/merge"
)

// DefaultTTL 会话空闲过期时间
const DefaultTTL = 2 * time.Hour

type entry struct {
	sess      *merge.Session
	expiresAt time.Time
}

// Store 内存会话表，访问即续期，过期会话在下一次访问时清理
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]entry
	now   func() time.Time
}

// NewStore ttl <= 0 时使用 DefaultTTL
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:   ttl,
		items: make(map[string]entry),
		now:   time.Now,
	}
}

// Create 新建会话
func (s *Store) Create() *merge.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	sess := merge.NewSession()
	s.items[sess.ID] = entry{sess: sess, expiresAt: now.Add(s.ttl)}
	return sess
}

// Get 查找会话并续期
func (s *Store) Get(id string) (*merge.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	v, ok := s.items[id]
	if !ok {
		return nil, false
	}
	v.expiresAt = now.Add(s.ttl)
	s.items[id] = v
	return v.sess, true
}

// GetOrCreate id 为空或已过期时新建会话，created 表示是否新建
func (s *Store) GetOrCreate(id string) (sess *merge.Session, created bool) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false
		}
	}
	return s.Create(), true
}

// Delete 删除会话
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len 当前有效会话数
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *Store) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}
