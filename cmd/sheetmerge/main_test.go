package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetmerge/internal/model"
	"sheetmerge/internal/service/merge"
)

func writeBook(t *testing.T, path string, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	tpl := writeBook(t, filepath.Join(dir, "template.xlsx"),
		[]interface{}{"姓名", "账号", "金额"},
		[]interface{}{"张三", "6222", 100},
	)

	out, err := run(t, "analyze", tpl)
	require.NoError(t, err)

	var info model.TemplateInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, []string{"姓名", "账号", "金额"}, info.Headers)
	assert.Equal(t, []model.ColumnType{model.ColumnText, model.ColumnText, model.ColumnNumber}, info.ColumnTypes)
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	tpl := writeBook(t, filepath.Join(dir, "template.xlsx"),
		[]interface{}{"姓名", "账号", "金额"},
		[]interface{}{"张三", "6222", 100},
	)
	east := writeBook(t, filepath.Join(dir, "east.xlsx"),
		[]interface{}{"姓名", "账号", "金额"},
		[]interface{}{"李四", "6223", 200},
		[]interface{}{"王五", "6224", "abc"},
	)
	west := writeBook(t, filepath.Join(dir, "west.xlsx"),
		[]interface{}{"姓名", "金额"},
		[]interface{}{"赵六", 300},
	)
	outPath := filepath.Join(dir, "out.xlsx")

	out, err := run(t, "merge", "-t", tpl, "-o", outPath, "--lenient", east, west)
	require.NoError(t, err)
	assert.Contains(t, out, "合并完成: 共 3 行, 2 个问题")
	assert.Contains(t, out, "east.xlsx / Sheet1 第3行 [金额] 格式与模板不一致")
	assert.Contains(t, out, "缺少列：账号")

	f, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(merge.SummarySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, []string{"赵六", "", "300"}, rows[3])
}

func TestMergeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	branch := writeBook(t, filepath.Join(dir, "a.xlsx"), []interface{}{"姓名"})

	_, err := run(t, "merge", branch)
	assert.Error(t, err, "template flag is required")

	_, err = run(t, "merge", "-t", branch, "--strategy", "magic", branch)
	assert.Error(t, err)

	_, err = run(t, "analyze", filepath.Join(dir, "missing.xlsx"))
	assert.Error(t, err)
}
