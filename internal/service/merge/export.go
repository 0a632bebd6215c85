package merge

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	// SummarySheet 导出工作表名称
	SummarySheet = "汇总"
	// ExportFileName 导出文件名
	ExportFileName = "merged_result.xlsx"
)

// WriteWorkbook 把表头和合并行写成单工作表的 xlsx，所有值按文本写入
func WriteWorkbook(w io.Writer, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SummarySheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if len(headers) > 0 {
		if err := sw.SetColWidth(1, len(headers), 18); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := sw.SetRow("A1", toRowValues(headers), excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toRowValues(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}

func toRowValues(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
