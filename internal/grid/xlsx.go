package grid

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// 内置日期/时间数字格式编号（含中文区域的 27-36、50-58）
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

func decodeXLSX(data []byte) (*Workbook, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer file.Close()

	reader := &xlsxReader{file: file, dateStyles: make(map[int]bool)}
	wb := &Workbook{}
	for _, name := range file.GetSheetList() {
		sheet, err := reader.readSheet(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

type xlsxReader struct {
	file       *excelize.File
	dateStyles map[int]bool
}

func (x *xlsxReader) readSheet(name string) (*Sheet, error) {
	display, err := x.file.GetRows(name)
	if err != nil {
		return nil, err
	}
	raw, err := x.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Name: name, Rows: make([]Row, len(display))}
	for r, values := range display {
		rowNo := r + 1
		row := Row{Cells: make([]Cell, len(values))}
		for c, text := range values {
			rawText := ""
			if r < len(raw) && c < len(raw[r]) {
				rawText = raw[r][c]
			}
			if strings.TrimSpace(text) == "" && strings.TrimSpace(rawText) == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, rowNo)
			if err != nil {
				return nil, err
			}
			formula, _ := x.file.GetCellFormula(name, axis)
			row.Cells[c] = Cell{
				Text:    text,
				Kind:    x.cellKind(name, axis, rawText),
				Formula: formula != "",
			}
		}
		row.Hidden = x.rowHidden(name, rowNo)
		sheet.Rows[r] = row
	}

	merges, err := x.file.GetMergeCells(name)
	if err != nil {
		return nil, err
	}
	for _, mc := range merges {
		region, ok := mergeRegion(mc.GetStartAxis(), mc.GetEndAxis())
		if ok {
			sheet.Merged = append(sheet.Merged, region)
		}
	}
	return sheet, nil
}

func (x *xlsxReader) rowHidden(sheet string, rowNo int) bool {
	if visible, err := x.file.GetRowVisible(sheet, rowNo); err == nil && !visible {
		return true
	}
	if height, err := x.file.GetRowHeight(sheet, rowNo); err == nil && height == 0 {
		return true
	}
	return false
}

func (x *xlsxReader) cellKind(sheet, axis, raw string) Kind {
	typ, err := x.file.GetCellType(sheet, axis)
	if err != nil {
		return KindText
	}
	switch typ {
	case excelize.CellTypeBool:
		return KindBool
	case excelize.CellTypeDate:
		return KindDate
	case excelize.CellTypeError:
		return KindError
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		// 公式单元格只有字符串结果才会标记为 str
		return KindText
	}

	if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
		return KindText
	}
	if x.dateFormatted(sheet, axis) {
		return KindDate
	}
	return KindNumber
}

func (x *xlsxReader) dateFormatted(sheet, axis string) bool {
	idx, err := x.file.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	if v, ok := x.dateStyles[idx]; ok {
		return v
	}
	isDate := false
	if style, err := x.file.GetStyle(idx); err == nil && style != nil {
		isDate = builtinDateFormats[style.NumFmt]
		if !isDate && style.CustomNumFmt != nil {
			isDate = IsDateFormatCode(*style.CustomNumFmt)
		}
	}
	x.dateStyles[idx] = isDate
	return isDate
}

// IsDateFormatCode 判断自定义数字格式是否为日期/时间格式
// 忽略引号内文本、方括号（颜色、区域）和转义字符后，出现 y/m/d/h/s 即视为日期。
func IsDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			if r == '"' {
				inQuote = false
			}
		case inBracket:
			if r == ']' {
				inBracket = false
			}
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	lower := strings.ToLower(b.String())
	if lower == "general" {
		return false
	}
	return strings.ContainsAny(lower, "ymdhs")
}

func mergeRegion(start, end string) (Region, bool) {
	c1, r1, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return Region{}, false
	}
	c2, r2, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return Region{}, false
	}
	return Region{FirstRow: r1 - 1, LastRow: r2 - 1, FirstCol: c1 - 1, LastCol: c2 - 1}, true
}
