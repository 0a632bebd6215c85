package merge

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sheetmerge/internal/model"
)

// Session 一次合并作业的状态：当前模板和最近一次合并结果
// 引擎的所有操作都显式接收 Session，不同会话互不影响。
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	template *model.TemplateDefinition
	rows     [][]string
	merged   bool
}

// NewSession 创建会话
func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}

// Template 当前模板，未分析时为 nil
func (s *Session) Template() *model.TemplateDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template
}

// MergedRows 最近一次合并的全部行
func (s *Session) MergedRows() ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.merged
}

// Reset 清空模板和合并结果
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = nil
	s.rows = nil
	s.merged = false
}
