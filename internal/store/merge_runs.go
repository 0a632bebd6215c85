package store

import (
	"database/sql"
	"fmt"

	"sheetmerge/internal/model"
)

// CreateMergeRun 创建合并记录，返回 run id
func (s *Store) CreateMergeRun(sessionID string, fileCount, templateCols int) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO merge_runs (session_id, file_count, template_columns, status)
		VALUES (?, ?, ?, 'processing')
	`, sessionID, fileCount, templateCols)
	if err != nil {
		return 0, fmt.Errorf("failed to create merge run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get merge run id: %w", err)
	}
	return id, nil
}

// AddMergeRunFile 记录单个文件的处理结果
func (s *Store) AddMergeRunFile(runID int64, report model.FileReport) error {
	_, err := s.db.Exec(`
		INSERT INTO merge_run_files (run_id, file_name, sheet_name, header_row, merged_rows, issue_count, status, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, report.FileName, report.SheetName, report.HeaderRow, report.MergedRows, report.Issues, report.Status, report.StopReason)
	if err != nil {
		return fmt.Errorf("failed to add merge run file: %w", err)
	}
	return nil
}

// FinishMergeRun 完成合并记录
func (s *Store) FinishMergeRun(runID int64, mergedRows, issueCount int, status, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE merge_runs SET
			merged_rows = ?,
			issue_count = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, mergedRows, issueCount, status, errorMessage, runID)
	if err != nil {
		return fmt.Errorf("failed to finish merge run: %w", err)
	}
	return nil
}

// ListMergeRuns 最近的合并记录（含文件明细），按时间倒序
func (s *Store) ListMergeRuns(limit int) ([]*model.MergeRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, session_id, template_columns, file_count, merged_rows, issue_count,
		       status, error_message, started_at, completed_at
		FROM merge_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.MergeRun, 0)
	for rows.Next() {
		run := &model.MergeRun{}
		var completed sql.NullTime
		if err := rows.Scan(&run.ID, &run.SessionID, &run.TemplateCols, &run.FileCount, &run.MergedRows,
			&run.IssueCount, &run.Status, &run.ErrorMessage, &run.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan merge run: %w", err)
		}
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		files, err := s.listMergeRunFiles(run.ID)
		if err != nil {
			return nil, err
		}
		run.Files = files
	}
	return runs, nil
}

func (s *Store) listMergeRunFiles(runID int64) ([]model.FileReport, error) {
	rows, err := s.db.Query(`
		SELECT file_name, sheet_name, header_row, merged_rows, issue_count, status, stop_reason
		FROM merge_run_files
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge run files: %w", err)
	}
	defer rows.Close()

	var files []model.FileReport
	for rows.Next() {
		var f model.FileReport
		if err := rows.Scan(&f.FileName, &f.SheetName, &f.HeaderRow, &f.MergedRows, &f.Issues, &f.Status, &f.StopReason); err != nil {
			return nil, fmt.Errorf("failed to scan merge run file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
