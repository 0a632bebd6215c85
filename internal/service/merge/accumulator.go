package merge

import "sheetmerge/internal/model"

// Accumulator 汇总所有文件的有效行和问题列表
type Accumulator struct {
	headers      []string
	rows         [][]string
	issues       []model.MergeIssue
	files        []model.FileReport
	previewLimit int
}

// NewAccumulator previewLimit <= 0 时使用默认预览行数
func NewAccumulator(headers []string, previewLimit int) *Accumulator {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	return &Accumulator{
		headers:      headers,
		rows:         make([][]string, 0),
		issues:       make([]model.MergeIssue, 0),
		files:        make([]model.FileReport, 0),
		previewLimit: previewLimit,
	}
}

// AddRow 追加一行（按模板列序）
func (a *Accumulator) AddRow(values []string) {
	a.rows = append(a.rows, values)
}

// AddIssue 追加问题
func (a *Accumulator) AddIssue(issue model.MergeIssue) {
	a.issues = append(a.issues, issue)
}

// AddFile 追加文件处理结果
func (a *Accumulator) AddFile(report model.FileReport) {
	a.files = append(a.files, report)
}

// IssueCount 已记录的问题数
func (a *Accumulator) IssueCount() int {
	return len(a.issues)
}

// Rows 全部合并行
func (a *Accumulator) Rows() [][]string {
	return a.rows
}

// Result 合并结果，预览为全部行的前缀
func (a *Accumulator) Result() *model.MergeResult {
	n := min(len(a.rows), a.previewLimit)
	return &model.MergeResult{
		Headers:     a.headers,
		PreviewRows: a.rows[:n:n],
		TotalRows:   len(a.rows),
		Issues:      a.issues,
		Files:       a.files,
	}
}
