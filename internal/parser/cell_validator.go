package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
)

// ValidationLevel 校验级别
type ValidationLevel string

const (
	// ValidationStrict 必填列为空时报问题
	ValidationStrict ValidationLevel = "strict"
	// ValidationLenient 只校验格式
	ValidationLenient ValidationLevel = "lenient"
)

// 单元格问题描述
const (
	MsgRequiredEmpty  = "必填项为空"
	MsgFormatMismatch = "格式与模板不一致"
)

// 支持的日期写法，"." 和 "/" 会先统一替换为 "-"
var dateLayouts = []string{"20060102", "2006-1-2", "2006年1月2日"}

// ParseValidationLevel 解析配置值，空串返回 ValidationStrict
func ParseValidationLevel(s string) (ValidationLevel, error) {
	switch ValidationLevel(strings.ToLower(s)) {
	case "", ValidationStrict:
		return ValidationStrict, nil
	case ValidationLenient:
		return ValidationLenient, nil
	}
	return "", fmt.Errorf("unknown validation level %q", s)
}

// CellValidator 单元格校验器，每个文件一个实例
type CellValidator struct {
	tpl      *model.TemplateDefinition
	level    ValidationLevel
	keywords Keywords
	missing  map[int]bool
}

// NewCellValidator missing 为该文件缺失的模板列下标
func NewCellValidator(tpl *model.TemplateDefinition, level ValidationLevel, kw Keywords, missing []int) *CellValidator {
	v := &CellValidator{
		tpl:      tpl,
		level:    level,
		keywords: kw.WithDefaults(),
		missing:  make(map[int]bool, len(missing)),
	}
	for _, i := range missing {
		v.missing[i] = true
	}
	return v
}

// Validate 校验模板第 col 列的值，通过时返回空串
func (v *CellValidator) Validate(col int, cell grid.Cell, value string) string {
	norm := v.tpl.NormalizedHeaders[col]
	if v.keywords.IsSerialHeader(norm) || v.missing[col] {
		return ""
	}
	if strings.TrimSpace(value) == "" {
		if v.level != ValidationLenient && v.tpl.IsRequired(norm) {
			return MsgRequiredEmpty
		}
		return ""
	}
	if !MatchesType(cell, value, v.tpl.ColumnTypes[col]) {
		return MsgFormatMismatch
	}
	return ""
}

// MatchesType 非空值是否符合列类型
func MatchesType(cell grid.Cell, value string, typ model.ColumnType) bool {
	switch typ {
	case model.ColumnNumber:
		return cell.Kind.Numeric() || IsNumeric(value)
	case model.ColumnDate:
		return cell.Kind == grid.KindDate || IsDateString(value)
	}
	return true
}

// IsNumeric 去掉千分位后能否解析为数字
func IsNumeric(value string) bool {
	v := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if v == "" {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// IsDateString 是否为可识别的日期文本
func IsDateString(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	v = strings.NewReplacer(".", "-", "/", "-").Replace(v)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
