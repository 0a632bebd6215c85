package grid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

// BIFF 记录类型
const (
	recFormula     = 0x0006
	recEOF         = 0x000A
	recDateMode    = 0x0022
	recBoundSheet  = 0x0085
	recMulRK       = 0x00BD
	recMulBlank    = 0x00BE
	recXF          = 0x00E0
	recMergedCells = 0x00E5
	recLabelSST    = 0x00FD
	recBlank       = 0x0201
	recNumber      = 0x0203
	recLabel       = 0x0204
	recBoolErr     = 0x0205
	recString      = 0x0207
	recRow         = 0x0208
	recRK          = 0x027E
	recFormat      = 0x041E
	recBOF         = 0x0809
)

var errNoWorkbookStream = errors.New("workbook stream not found")

type cellKey struct {
	row, col int
}

// biffCell 单元格的类型与值；文本单元格的内容取自 xls 库
type biffCell struct {
	kind    Kind
	num     float64
	text    string
	formula bool
	label   bool
}

type biffSheet struct {
	cells  map[cellKey]biffCell
	width  map[int]int
	hidden map[int]bool
	merged []Region
}

func newBIFFSheet() *biffSheet {
	return &biffSheet{
		cells:  make(map[cellKey]biffCell),
		width:  make(map[int]int),
		hidden: make(map[int]bool),
	}
}

func (s *biffSheet) set(r, c int, cell biffCell) {
	s.cells[cellKey{r, c}] = cell
	s.touch(r, c+1)
}

func (s *biffSheet) touch(r, width int) {
	if width > s.width[r] {
		s.width[r] = width
	}
}

func (s *biffSheet) lastRow() int {
	last := -1
	for r := range s.width {
		last = max(last, r)
	}
	return last
}

// biffBook 按 BOUNDSHEET 顺序保存各工作表的元信息
type biffBook struct {
	date1904  bool
	biff8     bool
	xfFormats []uint16
	formats   map[uint16]string
	sheets    []*biffSheet
}

func (b *biffBook) sheet(i int) *biffSheet {
	if i < 0 || i >= len(b.sheets) {
		return nil
	}
	return b.sheets[i]
}

// isDateXF 单元格格式是否为日期；FORMAT 记录优先于内置编号
func (b *biffBook) isDateXF(xf int) bool {
	if xf < 0 || xf >= len(b.xfFormats) {
		return false
	}
	id := b.xfFormats[xf]
	if code, ok := b.formats[id]; ok {
		return IsDateFormatCode(code)
	}
	return builtinDateFormats[int(id)]
}

func (b *biffBook) numberCell(xf int, v float64, formula bool) biffCell {
	kind := KindNumber
	if b.isDateXF(xf) {
		kind = KindDate
	}
	return biffCell{kind: kind, num: v, formula: formula}
}

// workbookStream 从 OLE2 复合文档中取出 Workbook（BIFF8）或 Book（BIFF5）流
func workbookStream(data []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != "Workbook" && entry.Name != "Book" {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("read %s stream: %w", entry.Name, err)
		}
		return buf, nil
	}
	return nil, errNoWorkbookStream
}

// scanBIFF 顺序扫描记录，收集单元格类型、数字格式、隐藏行和合并区域
func scanBIFF(stream []byte) (*biffBook, error) {
	book := &biffBook{biff8: true, formats: make(map[uint16]string)}
	sheetAt := make(map[int]int)

	// 工作表子流内可能嵌有图表子流，用栈跟踪当前所在子流
	var stack []*biffSheet
	var pending *cellKey

	for pos := 0; pos+4 <= len(stream); {
		id := binary.LittleEndian.Uint16(stream[pos:])
		size := int(binary.LittleEndian.Uint16(stream[pos+2:]))
		start := pos + 4
		if start+size > len(stream) {
			return nil, fmt.Errorf("record 0x%04X at %d is truncated", id, pos)
		}
		body := stream[start : start+size]
		recPos := pos
		pos = start + size

		var cur *biffSheet
		if len(stack) > 0 {
			cur = stack[len(stack)-1]
		}

		switch id {
		case recBOF:
			if len(stack) == 0 && len(body) >= 2 && binary.LittleEndian.Uint16(body) != 0x0600 {
				book.biff8 = false
			}
			var next *biffSheet
			if i, ok := sheetAt[recPos]; ok {
				next = book.sheets[i]
			}
			stack = append(stack, next)
		case recEOF:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			pending = nil
		case recDateMode:
			if len(body) >= 2 {
				book.date1904 = binary.LittleEndian.Uint16(body) == 1
			}
		case recBoundSheet:
			if len(body) >= 4 {
				sheetAt[int(binary.LittleEndian.Uint32(body))] = len(book.sheets)
				book.sheets = append(book.sheets, newBIFFSheet())
			}
		case recXF:
			if len(body) >= 4 {
				book.xfFormats = append(book.xfFormats, binary.LittleEndian.Uint16(body[2:]))
			}
		case recFormat:
			if len(body) >= 2 {
				lenSize := 2
				if !book.biff8 {
					lenSize = 1
				}
				book.formats[binary.LittleEndian.Uint16(body)] = xlString(body[2:], lenSize, book.biff8)
			}
		}

		if cur == nil {
			continue
		}
		if id != recString {
			pending = nil
		}

		switch id {
		case recRow:
			if len(body) >= 16 {
				r := int(binary.LittleEndian.Uint16(body))
				cur.touch(r, int(binary.LittleEndian.Uint16(body[4:])))
				if binary.LittleEndian.Uint32(body[12:])&0x20 != 0 {
					cur.hidden[r] = true
				}
			}
		case recNumber:
			if r, c, xf, ok := cellHeader(body, 14); ok {
				cur.set(r, c, book.numberCell(xf, math.Float64frombits(binary.LittleEndian.Uint64(body[6:])), false))
			}
		case recRK:
			if r, c, xf, ok := cellHeader(body, 10); ok {
				cur.set(r, c, book.numberCell(xf, rkValue(binary.LittleEndian.Uint32(body[6:])), false))
			}
		case recMulRK:
			if r, c, _, ok := cellHeader(body, 6); ok {
				for i, off := 0, 4; off+6 <= len(body)-2; i, off = i+1, off+6 {
					xf := int(binary.LittleEndian.Uint16(body[off:]))
					cur.set(r, c+i, book.numberCell(xf, rkValue(binary.LittleEndian.Uint32(body[off+2:])), false))
				}
			}
		case recLabelSST, recLabel:
			if r, c, _, ok := cellHeader(body, 6); ok {
				cur.set(r, c, biffCell{kind: KindText, label: true})
			}
		case recBlank:
			if r, c, _, ok := cellHeader(body, 6); ok {
				cur.touch(r, c+1)
			}
		case recMulBlank:
			if len(body) >= 6 {
				r := int(binary.LittleEndian.Uint16(body))
				cur.touch(r, int(binary.LittleEndian.Uint16(body[len(body)-2:]))+1)
			}
		case recBoolErr:
			if r, c, _, ok := cellHeader(body, 8); ok {
				cur.set(r, c, boolErrCell(body[6], body[7] != 0, false))
			}
		case recFormula:
			r, c, xf, ok := cellHeader(body, 14)
			if !ok {
				break
			}
			res := body[6:14]
			if binary.LittleEndian.Uint16(res[6:]) != 0xFFFF {
				cur.set(r, c, book.numberCell(xf, math.Float64frombits(binary.LittleEndian.Uint64(res)), true))
				break
			}
			switch res[0] {
			case 0x00:
				// 字符串结果在紧随其后的 STRING 记录中
				cur.set(r, c, biffCell{kind: KindText, formula: true})
				pending = &cellKey{r, c}
			case 0x01:
				cur.set(r, c, boolErrCell(res[2], false, true))
			case 0x02:
				cur.set(r, c, boolErrCell(res[2], true, true))
			default:
				cur.set(r, c, biffCell{kind: KindBlank, formula: true})
			}
		case recString:
			if pending != nil {
				cell := cur.cells[*pending]
				cell.text = xlString(body, 2, book.biff8)
				if cell.text == "" {
					cell.kind = KindBlank
				}
				cur.cells[*pending] = cell
				pending = nil
			}
		case recMergedCells:
			if len(body) >= 2 {
				n := int(binary.LittleEndian.Uint16(body))
				for i := 0; i < n && 2+i*8+8 <= len(body); i++ {
					ref := body[2+i*8:]
					cur.merged = append(cur.merged, Region{
						FirstRow: int(binary.LittleEndian.Uint16(ref)),
						LastRow:  int(binary.LittleEndian.Uint16(ref[2:])),
						FirstCol: int(binary.LittleEndian.Uint16(ref[4:])),
						LastCol:  int(binary.LittleEndian.Uint16(ref[6:])),
					})
				}
			}
		}
	}
	return book, nil
}

func cellHeader(body []byte, minLen int) (r, c, xf int, ok bool) {
	if len(body) < minLen || len(body) < 6 {
		return 0, 0, 0, false
	}
	return int(binary.LittleEndian.Uint16(body)),
		int(binary.LittleEndian.Uint16(body[2:])),
		int(binary.LittleEndian.Uint16(body[4:])), true
}

// rkValue 解码 RK 压缩数值
func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

var biffErrors = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

func boolErrCell(v byte, isErr, formula bool) biffCell {
	if isErr {
		text, ok := biffErrors[v]
		if !ok {
			text = "#ERR!"
		}
		return biffCell{kind: KindError, text: text, formula: formula}
	}
	text := "FALSE"
	if v != 0 {
		text = "TRUE"
	}
	return biffCell{kind: KindBool, text: text, formula: formula}
}

// xlString 读取带长度前缀的字符串；BIFF8 有标志字节，可能是 UTF-16
func xlString(b []byte, lenSize int, biff8 bool) string {
	if len(b) < lenSize {
		return ""
	}
	n := int(b[0])
	if lenSize == 2 {
		n = int(binary.LittleEndian.Uint16(b))
	}
	b = b[lenSize:]
	if biff8 {
		if len(b) == 0 {
			return ""
		}
		flags := b[0]
		b = b[1:]
		if flags&0x08 != 0 {
			b = b[min(2, len(b)):]
		}
		if flags&0x04 != 0 {
			b = b[min(4, len(b)):]
		}
		if flags&0x01 != 0 {
			n = min(n, len(b)/2)
			u := make([]uint16, n)
			for i := range u {
				u[i] = binary.LittleEndian.Uint16(b[2*i:])
			}
			return string(utf16.Decode(u))
		}
	}
	n = min(n, len(b))
	runes := make([]rune, n)
	for i := 0; i < n; i++ {
		runes[i] = rune(b[i])
	}
	return string(runes)
}
