package parser

import (
	"fmt"
	"unicode"

	"sheetmerge/internal/grid"
)

// HeaderScanLimit 表头扫描窗口：从首行起向下最多 30 行
const HeaderScanLimit = 30

// HeaderMatchMode 分支文件表头定位方式
type HeaderMatchMode string

const (
	// MatchExact 过滤后的规范化表头与模板逐列一致
	MatchExact HeaderMatchMode = "exact"
	// MatchBestCount 命中模板表头最多的行
	MatchBestCount HeaderMatchMode = "best_count"
)

// ParseHeaderMatchMode 解析配置值，空串返回 MatchBestCount
func ParseHeaderMatchMode(s string) (HeaderMatchMode, error) {
	switch HeaderMatchMode(s) {
	case "", MatchBestCount:
		return MatchBestCount, nil
	case MatchExact:
		return MatchExact, nil
	}
	return "", fmt.Errorf("unknown header match mode %q", s)
}

// HeaderLocator 表头行定位器
type HeaderLocator struct {
	keywords Keywords
}

// NewHeaderLocator 创建定位器
func NewHeaderLocator(keywords Keywords) *HeaderLocator {
	return &HeaderLocator{keywords: keywords.WithDefaults()}
}

type rowStats struct {
	nonBlank   int
	headerLike int
	firstCol   int
}

func (l *HeaderLocator) window(s *grid.Sheet) (first, last int) {
	first = s.FirstRow()
	last = min(s.LastRow(), first+HeaderScanLimit)
	return first, last
}

// ByDensity 模板分析用：按表头特征打分选出表头行，找不到返回 -1
func (l *HeaderLocator) ByDensity(s *grid.Sheet) int {
	first, last := l.window(s)
	bestRow, bestText, bestNonBlank := -1, 0, 0
	fallback := -1

	for r := first; r <= last; r++ {
		row := s.Row(r)
		st := l.stats(row)
		if st.nonBlank == 0 {
			continue
		}

		if st.nonBlank == 1 && inWideMergedRegion(s, r, st.firstCol) {
			if fallback < 0 {
				fallback = r
			}
			continue
		}

		if st.nonBlank == 1 && l.keywords.LooksLikeInstruction(row.Cell(st.firstCol).Value()) {
			if next := r + 1; next <= s.LastRow() && l.isLikelyHeaderRow(s.Row(next)) {
				return next
			}
			if fallback < 0 {
				fallback = r
			}
			continue
		}

		if st.headerLike > bestText || (st.headerLike == bestText && st.nonBlank > bestNonBlank) {
			bestRow, bestText, bestNonBlank = r, st.headerLike, st.nonBlank
		}
	}

	if bestRow >= 0 {
		return bestRow
	}
	return fallback
}

// FirstNonEmpty 窗口内第一个有非空单元格的行
func (l *HeaderLocator) FirstNonEmpty(s *grid.Sheet) int {
	first, last := l.window(s)
	for r := first; r <= last; r++ {
		if !s.Row(r).Empty() {
			return r
		}
	}
	return -1
}

// ByMatch 在分支文件中定位与模板表头匹配的行，找不到返回 -1
func (l *HeaderLocator) ByMatch(s *grid.Sheet, templateHeaders []string, mode HeaderMatchMode) int {
	if mode == MatchExact {
		return l.byExact(s, templateHeaders)
	}
	return l.byBestCount(s, templateHeaders)
}

func (l *HeaderLocator) byExact(s *grid.Sheet, templateHeaders []string) int {
	first, last := l.window(s)
	for r := first; r <= last; r++ {
		row := s.Row(r)
		if l.isInstructionRow(row) {
			continue
		}
		if exactHeaderMatch(normalizedCells(row), templateHeaders) {
			return r
		}
	}
	return -1
}

func (l *HeaderLocator) byBestCount(s *grid.Sheet, templateHeaders []string) int {
	expected := make(map[string]struct{}, len(templateHeaders))
	for _, h := range templateHeaders {
		if h != "" {
			expected[h] = struct{}{}
		}
	}

	first, last := l.window(s)
	bestRow, bestCount := -1, 0
	for r := first; r <= last; r++ {
		row := s.Row(r)
		if l.isInstructionRow(row) {
			continue
		}
		count := 0
		for _, v := range normalizedCells(row) {
			if _, ok := expected[v]; ok {
				count++
			}
		}
		if count > bestCount {
			bestRow, bestCount = r, count
		}
	}
	return bestRow
}

func exactHeaderMatch(values, expected []string) bool {
	if len(values) == 0 || len(values) != len(expected) {
		return false
	}
	seen := make(map[string]struct{}, len(values))
	for i, v := range values {
		if _, dup := seen[v]; dup {
			return false
		}
		seen[v] = struct{}{}
		if v != expected[i] {
			return false
		}
	}
	return true
}

// normalizedCells 行内非空单元格的规范化文本（按列序，跳过规范化后为空的）
func normalizedCells(row grid.Row) []string {
	var out []string
	for _, c := range row.Cells {
		if c.Blank() {
			continue
		}
		if v := NormalizeHeader(c.Text); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (l *HeaderLocator) stats(row grid.Row) rowStats {
	st := rowStats{firstCol: -1}
	for i, c := range row.Cells {
		if c.Blank() {
			continue
		}
		if st.firstCol < 0 {
			st.firstCol = i
		}
		st.nonBlank++
		if isHeaderTextCell(c) {
			st.headerLike++
		}
	}
	return st
}

// isInstructionRow 只有一个非空单元格且内容像填表说明
func (l *HeaderLocator) isInstructionRow(row grid.Row) bool {
	st := l.stats(row)
	return st.nonBlank == 1 && l.keywords.LooksLikeInstruction(row.Cell(st.firstCol).Value())
}

// isLikelyHeaderRow 至少两个非空单元格、文本单元格占比不低于 60%，且没有说明性文字
func (l *HeaderLocator) isLikelyHeaderRow(row grid.Row) bool {
	st := l.stats(row)
	if st.nonBlank < 2 {
		return false
	}
	need := max(2, (st.nonBlank*6+9)/10)
	if st.headerLike < need {
		return false
	}
	for _, c := range row.Cells {
		if l.keywords.LooksLikeInstruction(c.Value()) {
			return false
		}
	}
	return true
}

func inWideMergedRegion(s *grid.Sheet, r, c int) bool {
	region, ok := s.MergedRegion(r, c)
	return ok && region.LastCol > region.FirstCol
}

func isHeaderTextCell(c grid.Cell) bool {
	if c.Kind == grid.KindText {
		return true
	}
	for _, ch := range c.Value() {
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || unicode.Is(unicode.Han, ch) {
			return true
		}
	}
	return false
}
