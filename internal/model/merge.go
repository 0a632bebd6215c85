package model

import "time"

// MergeIssue 合并过程中发现的问题
// RowNo 从 1 开始，0 表示整份文件级别的问题。
type MergeIssue struct {
	FileName   string `json:"fileName"`
	SheetName  string `json:"sheetName,omitempty"`
	RowNo      int    `json:"rowNo,omitempty"`
	ColumnName string `json:"columnName,omitempty"`
	Message    string `json:"message"`
}

// 文件处理状态
const (
	FileMerged  = "merged"
	FileSkipped = "skipped"
	FileFailed  = "failed"
)

// 停止读取的原因
const (
	StopEndOfSheet    = "end_of_sheet"
	StopTotalRow      = "total_row"
	StopInvalidStreak = "invalid_streak"
)

// FileReport 单个文件的处理结果
type FileReport struct {
	FileName   string `json:"fileName"`
	SheetName  string `json:"sheetName,omitempty"`
	HeaderRow  int    `json:"headerRow,omitempty"` // 从 1 开始
	MergedRows int    `json:"mergedRows"`
	Issues     int    `json:"issues"`
	Status     string `json:"status"`
	StopReason string `json:"stopReason,omitempty"`
}

// MergeResult 合并结果
type MergeResult struct {
	Headers     []string     `json:"headers"`
	PreviewRows [][]string   `json:"previewRows"`
	TotalRows   int          `json:"totalRows"`
	Issues      []MergeIssue `json:"issues"`
	Files       []FileReport `json:"files"`
}

// ProgressEvent 合并进度事件
type ProgressEvent struct {
	Type      string      `json:"type"` // start/file_start/file_done/done/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// MergeRun 合并日志记录
type MergeRun struct {
	ID           int64        `json:"id"`
	SessionID    string       `json:"sessionId"`
	TemplateCols int          `json:"templateColumns"`
	FileCount    int          `json:"fileCount"`
	MergedRows   int          `json:"mergedRows"`
	IssueCount   int          `json:"issueCount"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	Files        []FileReport `json:"files,omitempty"`
}
