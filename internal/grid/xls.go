package grid

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// decodeXLS 读取旧版 .xls 工作簿
// 文本（含共享字符串）由 xls 库解码；单元格类型、日期格式、公式结果、
// 隐藏行和合并区域来自对 BIFF 记录的直接扫描。
func decodeXLS(data []byte) (wb *Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("failed to open xls: %v", r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("failed to open xls: %w", errNoWorkbookStream)
	}
	stream, err := workbookStream(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	meta, err := scanBIFF(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read xls records: %w", err)
	}

	wb = &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		sm := meta.sheet(i)
		if sm == nil {
			sm = newBIFFSheet()
		}

		sheet := &Sheet{Name: ws.Name, Merged: sm.merged}
		for r := 0; r <= max(int(ws.MaxRow), sm.lastRow()); r++ {
			src := xlsRow(ws, r)
			width := sm.width[r]
			if src != nil {
				width = max(width, src.LastCol())
			}
			row := Row{Hidden: sm.hidden[r]}
			if width > 0 {
				row.Cells = make([]Cell, width)
				for c := range row.Cells {
					text := ""
					if src != nil {
						text = src.Col(c)
					}
					row.Cells[c] = meta.cell(sm, r, c, text)
				}
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		sheet.Rows = trimTrailingEmpty(sheet.Rows)
		wb.Sheets = append(wb.Sheets, sheet)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

// xlsRow 没有任何记录的行在 xls 库中不存在，访问会空指针
func xlsRow(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}

func (b *biffBook) cell(sm *biffSheet, r, c int, text string) Cell {
	m, ok := sm.cells[cellKey{r, c}]
	if !ok {
		return TextCell(text)
	}
	switch {
	case m.label:
		cell := Cell{Text: text}
		if !cell.Blank() {
			cell.Kind = KindText
		}
		return cell
	case m.kind == KindNumber:
		return Cell{Text: strconv.FormatFloat(m.num, 'f', -1, 64), Kind: KindNumber, Formula: m.formula}
	case m.kind == KindDate:
		return Cell{Text: serialText(m.num, b.date1904), Kind: KindDate, Formula: m.formula}
	}
	return Cell{Text: m.text, Kind: m.kind, Formula: m.formula}
}

// serialText 日期序列号转为显示文本，整数只显示日期
func serialText(v float64, date1904 bool) string {
	t, err := excelize.ExcelDateToTime(v, date1904)
	if err != nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	switch {
	case v == math.Trunc(v):
		return t.Format("2006-01-02")
	case v < 1:
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04:05")
}

func trimTrailingEmpty(rows []Row) []Row {
	end := len(rows)
	for end > 0 && rows[end-1].Empty() {
		end--
	}
	return rows[:end]
}
