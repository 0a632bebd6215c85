package parser

import (
	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
)

// ColumnMapping 分支文件表头 → 列号
type ColumnMapping struct {
	columns    map[string]int
	order      []string
	duplicates []string
}

// BuildColumnMapping 由表头行构建映射
// 同一行内规范化后重复的表头记为重复列，保留首次出现的位置。
func BuildColumnMapping(row grid.Row) ColumnMapping {
	m := ColumnMapping{columns: make(map[string]int)}
	flagged := make(map[string]bool)
	for idx, cell := range row.Cells {
		if cell.Blank() {
			continue
		}
		name := NormalizeHeader(cell.Text)
		if name == "" {
			continue
		}
		if _, exists := m.columns[name]; exists {
			if !flagged[name] {
				flagged[name] = true
				m.duplicates = append(m.duplicates, name)
			}
			continue
		}
		m.columns[name] = idx
		m.order = append(m.order, name)
	}
	return m
}

// Lookup 查找规范化表头所在列
func (m ColumnMapping) Lookup(normalized string) (int, bool) {
	idx, ok := m.columns[normalized]
	return idx, ok
}

// Names 按列序返回已映射的表头
func (m ColumnMapping) Names() []string {
	return m.order
}

// Duplicates 重复出现的表头（规范化后）
func (m ColumnMapping) Duplicates() []string {
	return m.duplicates
}

// HasDuplicates 是否存在重复列
func (m ColumnMapping) HasDuplicates() bool {
	return len(m.duplicates) > 0
}

// MissingColumns 模板中有、分支文件中没有的列（模板下标）
func MissingColumns(tpl *model.TemplateDefinition, m ColumnMapping) []int {
	var missing []int
	for i, h := range tpl.NormalizedHeaders {
		if _, ok := m.Lookup(h); !ok {
			missing = append(missing, i)
		}
	}
	return missing
}
