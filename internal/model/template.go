package model

// ColumnType 列类型
type ColumnType string

const (
	ColumnText   ColumnType = "TEXT"
	ColumnNumber ColumnType = "NUMBER"
	ColumnDate   ColumnType = "DATE"
)

// TemplateDefinition 模板定义，分析完成后不再修改
// Headers / NormalizedHeaders / ColumnTypes 三个切片按下标一一对应。
type TemplateDefinition struct {
	SheetName         string
	Headers           []string
	NormalizedHeaders []string
	ColumnTypes       []ColumnType
	RequiredHeaders   []string // 规范化后的必填表头，保持模板列序
	HeaderRowIndex    int      // 从 0 开始
	DataStartRow      int      // 从 0 开始

	// 命中的模板规则及其指定的策略，空值表示使用引擎默认
	RuleName    string
	Strategy    string
	HeaderMatch string
}

// HeaderName 规范化表头对应的原始表头，按下标查找；模板中不存在时原样返回
func (t *TemplateDefinition) HeaderName(normalized string) string {
	for i, h := range t.NormalizedHeaders {
		if h == normalized {
			return t.Headers[i]
		}
	}
	return normalized
}

// IsRequired 规范化表头是否必填
func (t *TemplateDefinition) IsRequired(normalized string) bool {
	for _, h := range t.RequiredHeaders {
		if h == normalized {
			return true
		}
	}
	return false
}

// Info 转为对外返回的模板信息（行号从 1 开始）
func (t *TemplateDefinition) Info() *TemplateInfo {
	required := make([]string, 0, len(t.RequiredHeaders))
	for i, h := range t.NormalizedHeaders {
		if t.IsRequired(h) {
			required = append(required, t.Headers[i])
		}
	}
	return &TemplateInfo{
		SheetName:       t.SheetName,
		Headers:         append([]string(nil), t.Headers...),
		HeaderRowIndex:  t.HeaderRowIndex + 1,
		DataStartRow:    t.DataStartRow + 1,
		ColumnTypes:     append([]ColumnType(nil), t.ColumnTypes...),
		RequiredHeaders: required,
		Rule:            t.RuleName,
		Strategy:        t.Strategy,
		HeaderMatch:     t.HeaderMatch,
	}
}

// TemplateInfo 模板分析结果
type TemplateInfo struct {
	SheetName       string       `json:"sheetName"`
	Headers         []string     `json:"headers"`
	HeaderRowIndex  int          `json:"headerRowIndex"`
	DataStartRow    int          `json:"dataStartRow"`
	ColumnTypes     []ColumnType `json:"columnTypes"`
	RequiredHeaders []string     `json:"requiredHeaders"`
	Rule            string       `json:"rule,omitempty"`
	Strategy        string       `json:"strategy"`
	HeaderMatch     string       `json:"headerMatch"`
}

// TemplateRule 模板规则：表头特征 + 必填字段
// MatchHeaders 为空的规则只在没有其他规则命中时生效。
type TemplateRule struct {
	Name             string   `json:"name" toml:"name" yaml:"name"`
	MatchHeaders     []string `json:"matchHeaders" toml:"match_headers" yaml:"match_headers"`
	RequiredHeaders  []string `json:"requiredHeaders" toml:"required_headers" yaml:"required_headers"`
	RequiredKeywords []string `json:"requiredKeywords,omitempty" toml:"required_keywords" yaml:"required_keywords"`
	ExemptKeywords   []string `json:"exemptKeywords,omitempty" toml:"exempt_keywords" yaml:"exempt_keywords"`
	Strategy         string   `json:"strategy,omitempty" toml:"strategy" yaml:"strategy"`
	HeaderMatch      string   `json:"headerMatch,omitempty" toml:"header_match" yaml:"header_match"`
}
