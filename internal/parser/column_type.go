package parser

import (
	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
)

// TypeSampleLimit 类型推断时向下采样的行数
const TypeSampleLimit = 50

// InferColumnType 取表头下方第一个有类型的单元格决定列类型
// 日期格式的数值 → DATE，其他数值 → NUMBER，文本/布尔 → TEXT，都取不到时默认 TEXT。
func InferColumnType(s *grid.Sheet, dataStart, col int) model.ColumnType {
	last := min(s.LastRow(), dataStart+TypeSampleLimit)
	for r := dataStart; r <= last; r++ {
		cell := s.Cell(r, col)
		switch cell.Kind {
		case grid.KindDate:
			return model.ColumnDate
		case grid.KindNumber:
			return model.ColumnNumber
		case grid.KindText, grid.KindBool:
			return model.ColumnText
		}
	}
	return model.ColumnText
}

// InferColumnTypes 批量推断
func InferColumnTypes(s *grid.Sheet, dataStart int, cols []int) []model.ColumnType {
	types := make([]model.ColumnType, len(cols))
	for i, col := range cols {
		types[i] = InferColumnType(s, dataStart, col)
	}
	return types
}
