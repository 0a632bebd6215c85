package parser

import "sheetmerge/internal/grid"

const (
	// SheetScanRows 数据密度扫描的行数
	SheetScanRows = 80
	// SheetScanCols 每行从首个非空列起扫描的列数
	SheetScanCols = 50
)

// PickDataSheet 选择非空单元格最多的工作表
// 并列时取靠前的一张；全部为 0 时返回第一张。
func PickDataSheet(wb *grid.Workbook) *grid.Sheet {
	if wb == nil || len(wb.Sheets) == 0 {
		return nil
	}
	best := wb.Sheets[0]
	bestScore := 0
	for _, s := range wb.Sheets {
		if score := SheetDensity(s); score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}

// SheetDensity 统计扫描窗口内的非空单元格数量
func SheetDensity(s *grid.Sheet) int {
	last := min(s.LastRow(), SheetScanRows-1)
	count := 0
	for r := 0; r <= last; r++ {
		row := s.Row(r)
		first := row.FirstCol()
		if first < 0 {
			continue
		}
		end := min(row.Len(), first+SheetScanCols)
		for c := first; c < end; c++ {
			if !row.Cell(c).Blank() {
				count++
			}
		}
	}
	return count
}
