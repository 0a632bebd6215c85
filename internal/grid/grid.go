package grid

import (
	"strconv"
	"strings"
)

// Kind 单元格解析后的基础类型
type Kind int

const (
	KindBlank Kind = iota
	KindText
	KindNumber
	KindDate
	KindBool
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	case KindError:
		return "error"
	default:
		return "blank"
	}
}

// Numeric 数值型单元格（日期格式的数值也算数值）
func (k Kind) Numeric() bool {
	return k == KindNumber || k == KindDate
}

// Cell 单元格
// Text 为格式化后的显示文本；公式单元格的 Kind 取缓存结果的类型。
type Cell struct {
	Text    string
	Kind    Kind
	Formula bool
}

// Value 去除首尾空白后的显示文本
func (c Cell) Value() string {
	return strings.TrimSpace(c.Text)
}

// Blank 是否为空白单元格
func (c Cell) Blank() bool {
	return c.Value() == ""
}

// Row 行，Cells 按列号索引（从 0 开始）
type Row struct {
	Cells  []Cell
	Hidden bool
}

// Len 物理单元格数量
func (r Row) Len() int {
	return len(r.Cells)
}

// Cell 获取指定列的单元格，越界返回空白单元格
func (r Row) Cell(col int) Cell {
	if col < 0 || col >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[col]
}

// Empty 行内没有任何非空单元格
func (r Row) Empty() bool {
	return r.FirstCol() < 0
}

// FirstCol 第一个非空单元格的列号，没有则返回 -1
func (r Row) FirstCol() int {
	for i, c := range r.Cells {
		if !c.Blank() {
			return i
		}
	}
	return -1
}

// NonBlankCount 非空单元格数量
func (r Row) NonBlankCount() int {
	n := 0
	for _, c := range r.Cells {
		if !c.Blank() {
			n++
		}
	}
	return n
}

// Region 合并单元格区域，行列均从 0 开始且包含两端
type Region struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
}

// Contains 判断坐标是否落在区域内
func (g Region) Contains(row, col int) bool {
	return row >= g.FirstRow && row <= g.LastRow && col >= g.FirstCol && col <= g.LastCol
}

// Sheet 工作表的只读快照
type Sheet struct {
	Name   string
	Rows   []Row
	Merged []Region
}

// Row 获取指定行，越界返回空行
func (s *Sheet) Row(r int) Row {
	if r < 0 || r >= len(s.Rows) {
		return Row{}
	}
	return s.Rows[r]
}

// Cell 获取指定单元格
func (s *Sheet) Cell(r, c int) Cell {
	return s.Row(r).Cell(c)
}

// FirstRow 第一个有单元格的行号；空表返回 0
func (s *Sheet) FirstRow() int {
	for i, row := range s.Rows {
		if row.Len() > 0 {
			return i
		}
	}
	return 0
}

// LastRow 最后一行的行号；空表返回 -1
func (s *Sheet) LastRow() int {
	return len(s.Rows) - 1
}

// MergedRegion 返回包含该坐标的合并区域
func (s *Sheet) MergedRegion(r, c int) (Region, bool) {
	for _, region := range s.Merged {
		if region.Contains(r, c) {
			return region, true
		}
	}
	return Region{}, false
}

// Workbook 工作簿
type Workbook struct {
	Sheets []*Sheet
}

// Sheet 按名称查找工作表
func (w *Workbook) Sheet(name string) *Sheet {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// FromValues 由纯文本构造工作表，类型按文本推断
func FromValues(name string, values [][]string) *Sheet {
	s := &Sheet{Name: name, Rows: make([]Row, len(values))}
	for r, cols := range values {
		cells := make([]Cell, len(cols))
		for c, text := range cols {
			cells[c] = TextCell(text)
		}
		s.Rows[r] = Row{Cells: cells}
	}
	return s
}

// TextCell 按文本内容推断类型的单元格
func TextCell(text string) Cell {
	v := strings.TrimSpace(text)
	if v == "" {
		return Cell{Text: text}
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return Cell{Text: text, Kind: KindNumber}
	}
	return Cell{Text: text, Kind: KindText}
}
