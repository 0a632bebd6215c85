package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sheetmerge/internal/model"
	"sheetmerge/internal/parser"
)

// KeywordRuleName 内置关键字必填规则
const KeywordRuleName = "关键字必填"

// KeywordRule 表头含单位、网点、账号等字样时必填，含金额、备注时不必填
func KeywordRule() model.TemplateRule {
	return model.TemplateRule{
		Name:             KeywordRuleName,
		RequiredKeywords: []string{"单位", "网点", "账号", "卡号", "姓名", "账户类型", "账户类别"},
		ExemptKeywords:   []string{"金额", "备注"},
	}
}

// Rule 构造只按表头列表判定必填的规则
func Rule(name string, matchHeaders, requiredHeaders []string) model.TemplateRule {
	return model.TemplateRule{Name: name, MatchHeaders: matchHeaders, RequiredHeaders: requiredHeaders}
}

type ruleFile struct {
	Templates []model.TemplateRule `json:"templates" toml:"templates" yaml:"templates"`
}

// Store 模板规则库
// 文件中的规则在前，内置关键字规则在最后兜底。
type Store struct {
	mu    sync.RWMutex
	rules []model.TemplateRule
}

// NewStore 创建规则库，自动追加内置关键字规则
func NewStore(rules ...model.TemplateRule) *Store {
	return &Store{rules: withBuiltin(rules)}
}

func withBuiltin(rules []model.TemplateRule) []model.TemplateRule {
	all := make([]model.TemplateRule, 0, len(rules)+1)
	all = append(all, rules...)
	return append(all, KeywordRule())
}

// Replace 整体替换文件规则，内置规则仍在最后
func (s *Store) Replace(rules []model.TemplateRule) {
	all := withBuiltin(rules)
	s.mu.Lock()
	s.rules = all
	s.mu.Unlock()
}

// Reload 重新读取规则文件；解析失败时保留原规则
func (s *Store) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules: %w", err)
	}
	rules, err := Parse(filepath.Base(path), data)
	if err != nil {
		return err
	}
	s.Replace(rules)
	return nil
}

// Load 从文件加载规则；path 为空时只有内置规则
func Load(path string) (*Store, error) {
	if path == "" {
		return NewStore(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	rules, err := Parse(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return NewStore(rules...), nil
}

// Parse 按扩展名解析规则文件（.json/.toml/.yaml/.yml）
func Parse(name string, data []byte) ([]model.TemplateRule, error) {
	var f ruleFile
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported rules file %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", name, err)
	}

	for i, r := range f.Templates {
		if r.Strategy != "" {
			if _, err := parser.ParseStrategyKind(r.Strategy); err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i+1, r.Name, err)
			}
		}
		if r.HeaderMatch != "" {
			if _, err := parser.ParseHeaderMatchMode(r.HeaderMatch); err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i+1, r.Name, err)
			}
		}
	}
	return f.Templates, nil
}

// Rules 全部规则（只读）
func (s *Store) Rules() []model.TemplateRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Resolution 必填字段解析结果
type Resolution struct {
	Rule        string
	Required    []string // 规范化表头，按模板列序
	Strategy    string
	HeaderMatch string
}

// Resolve 选出 MatchHeaders 全部包含在模板表头中、且数量最多的规则
// 并列时取靠前的规则；必填字段与模板表头取交集。
func (s *Store) Resolve(normalized []string) Resolution {
	present := make(map[string]bool, len(normalized))
	for _, h := range normalized {
		if h != "" {
			present[h] = true
		}
	}

	all := s.Rules()
	best, bestSize := -1, -1
	for i, rule := range all {
		size, ok := matchSize(rule, present)
		if ok && size > bestSize {
			best, bestSize = i, size
		}
	}
	if best < 0 {
		return Resolution{}
	}

	rule := all[best]
	listed := make(map[string]bool, len(rule.RequiredHeaders))
	for _, h := range rule.RequiredHeaders {
		if n := parser.NormalizeHeader(h); n != "" {
			listed[n] = true
		}
	}

	res := Resolution{Rule: rule.Name, Strategy: rule.Strategy, HeaderMatch: rule.HeaderMatch}
	seen := make(map[string]bool, len(normalized))
	for _, h := range normalized {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		if listed[h] || keywordRequired(rule, h) {
			res.Required = append(res.Required, h)
		}
	}
	return res
}

func matchSize(rule model.TemplateRule, present map[string]bool) (int, bool) {
	size := 0
	for _, h := range rule.MatchHeaders {
		n := parser.NormalizeHeader(h)
		if n == "" {
			continue
		}
		if !present[n] {
			return 0, false
		}
		size++
	}
	return size, true
}

func keywordRequired(rule model.TemplateRule, header string) bool {
	if len(rule.RequiredKeywords) == 0 {
		return false
	}
	if parser.ContainsAny(header, rule.ExemptKeywords) {
		return false
	}
	return parser.ContainsAny(header, rule.RequiredKeywords)
}
