package merge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
	"sheetmerge/internal/parser"
)

type loadedFile struct {
	wb  *grid.Workbook
	err error
}

// Merge 按输入顺序合并所有分支文件，结果保存到会话供导出
// 单个文件失败只记录问题，不影响其他文件。
func (e *Engine) Merge(ctx context.Context, sess *Session, sources []Source, progress ProgressFunc) (*model.MergeResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	tpl := sess.template
	if tpl == nil {
		return nil, ErrNoTemplate
	}
	if len(sources) == 0 {
		return nil, ErrNoFiles
	}

	emit(progress, "start", fmt.Sprintf("开始合并 %d 个文件", len(sources)), map[string]int{"files": len(sources)})
	runID := e.beginRun(sess.ID, tpl, len(sources))

	files, err := e.loadAll(ctx, sources)
	if err != nil {
		e.finishRun(runID, 0, 0, "failed", err.Error())
		emit(progress, "error", err.Error(), nil)
		return nil, err
	}

	acc := NewAccumulator(tpl.Headers, e.opts.PreviewLimit)
	for i, src := range sources {
		emit(progress, "file_start", src.Name, map[string]int{"index": i + 1, "total": len(sources)})

		report := e.mergeFile(acc, tpl, src.Name, files[i])
		acc.AddFile(report)
		e.recordFile(runID, report)

		e.log.Debug("file merged",
			zap.String("file", report.FileName),
			zap.String("sheet", report.SheetName),
			zap.String("status", report.Status),
			zap.Int("rows", report.MergedRows),
			zap.Int("issues", report.Issues),
			zap.String("stop", report.StopReason),
		)
		emit(progress, "file_done", src.Name, report)
	}

	sess.rows = acc.Rows()
	sess.merged = true
	result := acc.Result()

	e.finishRun(runID, result.TotalRows, len(result.Issues), "completed", "")
	e.log.Info("merge completed",
		zap.String("session", sess.ID),
		zap.Int("files", len(sources)),
		zap.Int("rows", result.TotalRows),
		zap.Int("issues", len(result.Issues)),
	)
	emit(progress, "done", "合并完成", result)
	return result, nil
}

// loadAll 并发解码，结果按输入下标存放
func (e *Engine) loadAll(ctx context.Context, sources []Source) ([]loadedFile, error) {
	out := make([]loadedFile, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i].wb, out[i].err = e.load(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) mergeFile(acc *Accumulator, tpl *model.TemplateDefinition, name string, f loadedFile) (report model.FileReport) {
	report = model.FileReport{FileName: name, Status: model.FileSkipped}
	before := acc.IssueCount()
	defer func() {
		if r := recover(); r != nil {
			acc.AddIssue(model.MergeIssue{FileName: name, SheetName: report.SheetName, Message: fmt.Sprintf("%s%v", msgParseFailed, r)})
			report.Status = model.FileFailed
			report.StopReason = ""
		}
		report.Issues = acc.IssueCount() - before
	}()

	if errors.Is(f.err, grid.ErrEmptyFile) {
		acc.AddIssue(model.MergeIssue{FileName: name, Message: msgEmptyFile})
		return report
	}
	if f.err != nil {
		acc.AddIssue(model.MergeIssue{FileName: name, Message: msgParseFailed + f.err.Error()})
		report.Status = model.FileFailed
		return report
	}

	sheet := parser.PickDataSheet(f.wb)
	if sheet == nil {
		acc.AddIssue(model.MergeIssue{FileName: name, Message: msgHeaderNotFound})
		return report
	}
	report.SheetName = sheet.Name
	issue := func(rowNo int, column, message string) {
		acc.AddIssue(model.MergeIssue{FileName: name, SheetName: sheet.Name, RowNo: rowNo, ColumnName: column, Message: message})
	}

	headerRow := e.locator.ByMatch(sheet, tpl.NormalizedHeaders, e.headerMatchFor(tpl))
	if headerRow < 0 {
		issue(0, "", msgHeaderNotFound)
		return report
	}
	report.HeaderRow = headerRow + 1

	mapping := parser.BuildColumnMapping(sheet.Row(headerRow))
	if mapping.HasDuplicates() {
		for _, dup := range mapping.Duplicates() {
			issue(0, tpl.HeaderName(dup), msgDuplicateColumn)
		}
		return report
	}

	missing := parser.MissingColumns(tpl, mapping)
	for _, i := range missing {
		issue(0, tpl.Headers[i], msgMissingColumn+tpl.Headers[i])
	}

	strategy := parser.NewStrategy(e.strategyFor(tpl), tpl, mapping, e.opts.Keywords)
	classifier := parser.NewRowClassifier(strategy, e.opts.Keywords)
	validator := parser.NewCellValidator(tpl, e.opts.ValidationLevel, e.opts.Keywords, missing)

	report.Status = model.FileMerged
	report.StopReason = model.StopEndOfSheet
	for r := headerRow + 1; r <= sheet.LastRow(); r++ {
		row := sheet.Row(r)
		if classifier.Classify(row) == parser.RowData {
			values := make([]string, len(tpl.NormalizedHeaders))
			for c, norm := range tpl.NormalizedHeaders {
				var cell grid.Cell
				if col, ok := mapping.Lookup(norm); ok {
					cell = row.Cell(col)
				}
				values[c] = cell.Value()
				if msg := validator.Validate(c, cell, values[c]); msg != "" {
					issue(r+1, tpl.Headers[c], msg)
				}
			}
			acc.AddRow(values)
			report.MergedRows++
		}
		if classifier.Stopped() {
			report.StopReason = classifier.StopReason()
			break
		}
	}
	return report
}

func (e *Engine) strategyFor(tpl *model.TemplateDefinition) parser.StrategyKind {
	if kind, err := parser.ParseStrategyKind(tpl.Strategy); err == nil && tpl.Strategy != "" {
		return kind
	}
	return e.opts.Strategy
}

func (e *Engine) headerMatchFor(tpl *model.TemplateDefinition) parser.HeaderMatchMode {
	if mode, err := parser.ParseHeaderMatchMode(tpl.HeaderMatch); err == nil && tpl.HeaderMatch != "" {
		return mode
	}
	return e.opts.HeaderMatch
}

func (e *Engine) beginRun(sessionID string, tpl *model.TemplateDefinition, files int) int64 {
	if e.journal == nil {
		return 0
	}
	id, err := e.journal.CreateMergeRun(sessionID, files, len(tpl.Headers))
	if err != nil {
		e.log.Warn("failed to create merge run", zap.Error(err))
		return 0
	}
	return id
}

func (e *Engine) recordFile(runID int64, report model.FileReport) {
	if e.journal == nil || runID == 0 {
		return
	}
	if err := e.journal.AddMergeRunFile(runID, report); err != nil {
		e.log.Warn("failed to record merge file", zap.Int64("run", runID), zap.Error(err))
	}
}

func (e *Engine) finishRun(runID int64, rows, issues int, status, message string) {
	if e.journal == nil || runID == 0 {
		return
	}
	if err := e.journal.FinishMergeRun(runID, rows, issues, status, message); err != nil {
		e.log.Warn("failed to finish merge run", zap.Int64("run", runID), zap.Error(err))
	}
}
