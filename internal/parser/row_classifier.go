package parser

import (
	"fmt"
	"strconv"
	"strings"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
)

// InvalidRowLimit 连续无效行达到该数量后停止读取
const InvalidRowLimit = 30

// RowState 行分类结果
type RowState int

const (
	RowBlank RowState = iota
	RowHidden
	RowTotal
	RowNotData
	RowData
)

func (s RowState) String() string {
	switch s {
	case RowBlank:
		return "blank"
	case RowHidden:
		return "hidden"
	case RowTotal:
		return "total"
	case RowNotData:
		return "not_data"
	case RowData:
		return "data"
	}
	return fmt.Sprintf("RowState(%d)", int(s))
}

// StrategyKind 数据行判定策略
type StrategyKind string

const (
	// StrategyAnchorKey 锚点列有值即为数据，否则按关键列命中数判定
	StrategyAnchorKey StrategyKind = "anchor_key"
	// StrategySerialKeyword 序号列必须是有效序号，再看关键列/必填列
	StrategySerialKeyword StrategyKind = "serial_keyword"
)

// ParseStrategyKind 解析配置值，空串返回 StrategyAnchorKey
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch StrategyKind(s) {
	case "", StrategyAnchorKey:
		return StrategyAnchorKey, nil
	case StrategySerialKeyword:
		return StrategySerialKeyword, nil
	}
	return "", fmt.Errorf("unknown row strategy %q", s)
}

// Strategy 判断一行是否为业务数据
type Strategy interface {
	Kind() StrategyKind
	IsDataRow(row grid.Row) bool
}

// NewStrategy 按名称构造策略
func NewStrategy(kind StrategyKind, tpl *model.TemplateDefinition, m ColumnMapping, kw Keywords) Strategy {
	kw = kw.WithDefaults()
	if kind == StrategySerialKeyword {
		return newSerialKeywordStrategy(tpl, m, kw)
	}
	return newAnchorKeyStrategy(tpl, m, kw)
}

// KeyColumnInfo 锚点列与关键列（分支文件列号）
type KeyColumnInfo struct {
	AnchorColumns []int
	KeyColumns    []int
	MinHits       int
}

// ResolveKeyColumnInfo 按关键词从模板表头中找出锚点列和关键列
// 序号、固定枚举及排除关键词对应的列不参与；同时命中时锚点优先。
func ResolveKeyColumnInfo(tpl *model.TemplateDefinition, m ColumnMapping, kw Keywords) KeyColumnInfo {
	kw = kw.WithDefaults()
	info := KeyColumnInfo{MinHits: max(1, kw.MinKeyHits)}
	for _, h := range tpl.NormalizedHeaders {
		if h == "" || kw.IsExcludedHeader(h) {
			continue
		}
		col, ok := m.Lookup(h)
		if !ok {
			continue
		}
		switch {
		case ContainsAny(h, kw.AnchorKeywords):
			info.AnchorColumns = append(info.AnchorColumns, col)
		case ContainsAny(h, kw.KeyFieldKeywords):
			info.KeyColumns = append(info.KeyColumns, col)
		}
	}
	return info
}

type anchorKeyStrategy struct {
	info     KeyColumnInfo
	editable []int
}

func newAnchorKeyStrategy(tpl *model.TemplateDefinition, m ColumnMapping, kw Keywords) *anchorKeyStrategy {
	s := &anchorKeyStrategy{info: ResolveKeyColumnInfo(tpl, m, kw)}
	var all []int
	for _, h := range tpl.NormalizedHeaders {
		col, ok := m.Lookup(h)
		if !ok {
			continue
		}
		all = append(all, col)
		if !kw.IsIgnorableForRows(h) {
			s.editable = append(s.editable, col)
		}
	}
	if len(s.editable) == 0 {
		s.editable = all
	}
	return s
}

func (s *anchorKeyStrategy) Kind() StrategyKind { return StrategyAnchorKey }

func (s *anchorKeyStrategy) IsDataRow(row grid.Row) bool {
	if anyFilled(row, s.info.AnchorColumns) {
		return true
	}
	if len(s.info.KeyColumns) > 0 {
		hits := 0
		for _, col := range s.info.KeyColumns {
			if !row.Cell(col).Blank() {
				hits++
			}
		}
		return hits >= s.info.MinHits
	}
	return anyFilled(row, s.editable)
}

type serialKeywordStrategy struct {
	serialCol int
	keyCols   []int
	// 依次为必填列、核心列；第一个非空的列组决定结果
	layers [][]int
}

func newSerialKeywordStrategy(tpl *model.TemplateDefinition, m ColumnMapping, kw Keywords) *serialKeywordStrategy {
	s := &serialKeywordStrategy{serialCol: -1}

	for _, h := range tpl.NormalizedHeaders {
		if kw.IsSerialHeader(h) {
			if col, ok := m.Lookup(h); ok {
				s.serialCol = col
				break
			}
		}
	}
	if s.serialCol < 0 {
		for _, h := range m.Names() {
			if kw.IsSerialHeader(h) {
				s.serialCol, _ = m.Lookup(h)
				break
			}
		}
	}

	for _, h := range tpl.NormalizedHeaders {
		if kw.IsSerialHeader(h) || !ContainsAny(h, kw.SerialKeyKeywords) {
			continue
		}
		if col, ok := m.Lookup(h); ok {
			s.keyCols = append(s.keyCols, col)
		}
	}

	mapped := func(headers []string) []int {
		var cols []int
		for _, h := range headers {
			if kw.IsIgnorableForRows(h) {
				continue
			}
			if col, ok := m.Lookup(h); ok {
				cols = append(cols, col)
			}
		}
		return cols
	}
	if cols := mapped(tpl.RequiredHeaders); len(cols) > 0 {
		s.layers = append(s.layers, cols)
	}
	if cols := mapped(coreHeaders(tpl, kw)); len(cols) > 0 {
		s.layers = append(s.layers, cols)
	}
	return s
}

func (s *serialKeywordStrategy) Kind() StrategyKind { return StrategySerialKeyword }

func (s *serialKeywordStrategy) IsDataRow(row grid.Row) bool {
	if s.serialCol >= 0 {
		if !IsValidSerial(row.Cell(s.serialCol)) {
			return false
		}
		if len(s.keyCols) > 0 {
			return anyFilled(row, s.keyCols)
		}
	}
	if len(s.layers) > 0 {
		return anyFilled(row, s.layers[0])
	}
	return !row.Empty()
}

// coreHeaders 必填∩核心列；为空时取全部核心列；仍为空时取全部表头
func coreHeaders(tpl *model.TemplateDefinition, kw Keywords) []string {
	isCore := func(h string) bool { return h != "" && !kw.IsExcludedHeader(h) }

	var out []string
	for _, h := range tpl.RequiredHeaders {
		if isCore(h) {
			out = append(out, h)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, h := range tpl.NormalizedHeaders {
		if isCore(h) {
			out = append(out, h)
		}
	}
	if len(out) > 0 {
		return out
	}
	return tpl.NormalizedHeaders
}

// IsValidSerial 有效序号：去掉千分位后是纯数字，或者是非日期的整数数值
func IsValidSerial(cell grid.Cell) bool {
	v := strings.ReplaceAll(cell.Value(), ",", "")
	if v == "" {
		return false
	}
	if isDigits(v) {
		return true
	}
	if cell.Kind != grid.KindNumber {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f >= 0 && f == float64(int64(f))
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func anyFilled(row grid.Row, cols []int) bool {
	for _, col := range cols {
		if !row.Cell(col).Blank() {
			return true
		}
	}
	return false
}

// RowClassifier 逐行分类并维护连续无效行计数
type RowClassifier struct {
	strategy Strategy
	totals   []string
	streak   int
	stop     string
}

// NewRowClassifier 创建分类器
func NewRowClassifier(strategy Strategy, kw Keywords) *RowClassifier {
	return &RowClassifier{strategy: strategy, totals: kw.WithDefaults().TotalKeywords}
}

// Classify 判定一行；遇到合计行或连续无效行达到上限后 Stopped 返回 true
func (c *RowClassifier) Classify(row grid.Row) RowState {
	state := c.classify(row)
	switch state {
	case RowData:
		c.streak = 0
	case RowTotal:
		c.stop = model.StopTotalRow
	default:
		c.streak++
		if c.streak >= InvalidRowLimit {
			c.stop = model.StopInvalidStreak
		}
	}
	return state
}

func (c *RowClassifier) classify(row grid.Row) RowState {
	if row.Len() == 0 || row.Empty() {
		return RowBlank
	}
	if row.Hidden {
		return RowHidden
	}
	if c.isTotalRow(row) {
		return RowTotal
	}
	if !c.strategy.IsDataRow(row) {
		return RowNotData
	}
	return RowData
}

func (c *RowClassifier) isTotalRow(row grid.Row) bool {
	for _, cell := range row.Cells {
		if v := cell.Value(); v != "" && ContainsAny(v, c.totals) {
			return true
		}
	}
	return false
}

// Stopped 是否应停止读取当前文件
func (c *RowClassifier) Stopped() bool {
	return c.stop != ""
}

// StopReason 停止原因，未停止时为空
func (c *RowClassifier) StopReason() string {
	return c.stop
}
