package merge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
	"sheetmerge/internal/parser"
)

// AnalyzeTemplate 分析模板并保存到会话，同时清空会话中已有的合并结果
func (e *Engine) AnalyzeTemplate(ctx context.Context, sess *Session, src Source) (*model.TemplateInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := e.load(src)
	if errors.Is(err, grid.ErrEmptyFile) {
		return nil, ErrEmptyTemplate
	}
	if err != nil {
		return nil, &TemplateParseError{Err: err}
	}

	tpl, err := e.Analyze(wb)
	if err != nil {
		e.log.Warn("template analysis failed", zap.String("file", src.Name), zap.Error(err))
		return nil, err
	}

	sess.mu.Lock()
	sess.template = tpl
	sess.rows = nil
	sess.merged = false
	sess.mu.Unlock()

	e.log.Info("template analyzed",
		zap.String("session", sess.ID),
		zap.String("file", src.Name),
		zap.String("sheet", tpl.SheetName),
		zap.Int("headerRow", tpl.HeaderRowIndex+1),
		zap.Strings("headers", tpl.Headers),
		zap.String("rule", tpl.RuleName),
	)
	return tpl.Info(), nil
}

// Analyze 从工作簿中提取模板定义
func (e *Engine) Analyze(wb *grid.Workbook) (*model.TemplateDefinition, error) {
	sheet := parser.PickDataSheet(wb)
	if sheet == nil {
		return nil, ErrHeaderNotFound
	}

	headerRow := e.locator.ByDensity(sheet)
	if headerRow < 0 {
		headerRow = e.locator.FirstNonEmpty(sheet)
	}
	if headerRow < 0 {
		return nil, ErrHeaderNotFound
	}

	var headers, normalized []string
	var cols []int
	seen := make(map[string]struct{})
	for c, cell := range sheet.Row(headerRow).Cells {
		if cell.Blank() {
			continue
		}
		// 规范化后为空的表头（例如只有括号注释）无法与分支文件匹配
		n := parser.NormalizeHeader(cell.Text)
		if n == "" {
			continue
		}
		// 分支文件同名列会整份被拒，模板阶段就直接报错
		if _, dup := seen[n]; dup {
			return nil, &DuplicateHeaderError{Header: cell.Value()}
		}
		seen[n] = struct{}{}
		headers = append(headers, cell.Value())
		normalized = append(normalized, n)
		cols = append(cols, c)
	}
	if len(headers) == 0 {
		return nil, ErrEmptyHeader
	}

	dataStart := headerRow + 1
	resolution := e.opts.Rules.Resolve(normalized)

	tpl := &model.TemplateDefinition{
		SheetName:         sheet.Name,
		Headers:           headers,
		NormalizedHeaders: normalized,
		ColumnTypes:       parser.InferColumnTypes(sheet, dataStart, cols),
		RequiredHeaders:   resolution.Required,
		HeaderRowIndex:    headerRow,
		DataStartRow:      dataStart,
		RuleName:          resolution.Rule,
		Strategy:          string(e.opts.Strategy),
		HeaderMatch:       string(e.opts.HeaderMatch),
	}
	if resolution.Strategy != "" {
		tpl.Strategy = resolution.Strategy
	}
	if resolution.HeaderMatch != "" {
		tpl.HeaderMatch = resolution.HeaderMatch
	}
	return tpl, nil
}
