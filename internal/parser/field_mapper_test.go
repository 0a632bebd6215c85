package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
)

func TestBuildColumnMapping(t *testing.T) {
	t.Parallel()

	row := grid.FromValues("S", [][]string{{"", "姓名", " 账号\n(必填) ", "(注)", "金额"}}).Row(0)
	m := BuildColumnMapping(row)

	if diff := cmp.Diff([]string{"姓名", "账号", "金额"}, m.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	idx, ok := m.Lookup("账号")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.False(t, m.HasDuplicates())
}

func TestBuildColumnMapping_Duplicates(t *testing.T) {
	t.Parallel()

	row := grid.FromValues("S", [][]string{{"姓名", "金额(元)", "金额（万元）", "姓名", "金额"}}).Row(0)
	m := BuildColumnMapping(row)

	assert.True(t, m.HasDuplicates())
	assert.Equal(t, []string{"金额", "姓名"}, m.Duplicates())
	idx, _ := m.Lookup("金额")
	assert.Equal(t, 1, idx)
}

func TestMissingColumns(t *testing.T) {
	t.Parallel()

	tpl := &model.TemplateDefinition{
		Headers:           []string{"姓名", "账号", "金额"},
		NormalizedHeaders: []string{"姓名", "账号", "金额"},
	}
	m := BuildColumnMapping(grid.FromValues("S", [][]string{{"姓名", "金额", "备注"}}).Row(0))
	assert.Equal(t, []int{1}, MissingColumns(tpl, m))
}
