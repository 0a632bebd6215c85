package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetmerge/internal/grid"
)

func newLocator() *HeaderLocator {
	return NewHeaderLocator(Keywords{})
}

func TestByDensity_SkipsInstructionBanner(t *testing.T) {
	t.Parallel()

	s := grid.FromValues("S", [][]string{
		{"请按以下要求填写，金额单位为元"},
		{"姓名", "账号", "金额"},
		{"张三", "6222", "100"},
	})
	assert.Equal(t, 1, newLocator().ByDensity(s))
}

func TestByDensity_InstructionFollowedByNonHeader(t *testing.T) {
	t.Parallel()

	// 说明行下一行不像表头时，继续按打分选出真正的表头
	s := grid.FromValues("S", [][]string{
		{"填表说明"},
		{"1", "2"},
		{},
		{"单位", "网点", "账号", "金额"},
	})
	assert.Equal(t, 3, newLocator().ByDensity(s))
}

func TestByDensity_MergedBannerIsFallbackOnly(t *testing.T) {
	t.Parallel()

	s := grid.FromValues("S", [][]string{
		{"2024年度网点资产登记表"},
		{},
		{"资产编号", "资产名称", "存放地点"},
	})
	s.Merged = []grid.Region{{FirstRow: 0, LastRow: 0, FirstCol: 0, LastCol: 2}}
	assert.Equal(t, 2, newLocator().ByDensity(s))

	only := grid.FromValues("S", [][]string{{"2024年度网点资产登记表"}})
	only.Merged = []grid.Region{{FirstRow: 0, LastRow: 0, FirstCol: 0, LastCol: 3}}
	assert.Equal(t, 0, newLocator().ByDensity(only))
}

func TestByDensity_TextCountDominates(t *testing.T) {
	t.Parallel()

	s := grid.FromValues("S", [][]string{
		{"1", "2", "3", "4", "5"},
		{"姓名", "账号", "金额"},
		{"张三", "6222", "100"},
	})
	assert.Equal(t, 1, newLocator().ByDensity(s))
}

func TestByDensity_WindowBounded(t *testing.T) {
	t.Parallel()

	rows := make([][]string, HeaderScanLimit+5)
	rows[0] = []string{"1"}
	rows[HeaderScanLimit+2] = []string{"姓名", "账号"}
	s := grid.FromValues("S", rows)
	assert.Equal(t, 0, newLocator().ByDensity(s))
	assert.Equal(t, 0, newLocator().FirstNonEmpty(s))
	assert.Equal(t, -1, newLocator().ByMatch(s, []string{"姓名", "账号"}, MatchBestCount))
}

func TestByDensity_NumericOnlyRowStillAccepted(t *testing.T) {
	t.Parallel()

	s := grid.FromValues("S", [][]string{{"1", "2"}})
	assert.Equal(t, 0, newLocator().ByDensity(s))
	assert.Equal(t, -1, newLocator().ByDensity(grid.FromValues("S", nil)))
}

func TestByMatch_Exact(t *testing.T) {
	t.Parallel()

	tpl := []string{"姓名", "账号", "金额"}
	s := grid.FromValues("S", [][]string{
		{"注意：请如实填写"},
		{"姓名", "账号"},
		{"姓名", "账号（必填）", "金额(元)"},
		{"张三", "6222", "100"},
	})
	assert.Equal(t, 2, newLocator().ByMatch(s, tpl, MatchExact))

	dup := grid.FromValues("S", [][]string{{"姓名", "账号", "账号(2)", "金额"}})
	assert.Equal(t, -1, newLocator().ByMatch(dup, tpl, MatchExact))

	reordered := grid.FromValues("S", [][]string{{"账号", "姓名", "金额"}})
	assert.Equal(t, -1, newLocator().ByMatch(reordered, tpl, MatchExact))
}

func TestByMatch_BestCount(t *testing.T) {
	t.Parallel()

	tpl := []string{"姓名", "账号", "金额"}
	s := grid.FromValues("S", [][]string{
		{"网点资产表"},
		{"姓名", "金额"},
		{"张三", "100"},
	})
	assert.Equal(t, 1, newLocator().ByMatch(s, tpl, MatchBestCount))

	none := grid.FromValues("S", [][]string{{"a", "b"}})
	assert.Equal(t, -1, newLocator().ByMatch(none, tpl, MatchBestCount))
}

func TestByMatch_BestCountSkipsInstructionRow(t *testing.T) {
	t.Parallel()

	tpl := []string{"备注", "姓名", "账号"}
	s := grid.FromValues("S", [][]string{
		{"备注"},
		{"序号", "xx", "yy"},
	})
	assert.Equal(t, -1, newLocator().ByMatch(s, tpl, MatchBestCount))

	s = grid.FromValues("S", [][]string{
		{"说明：请按要求填写"},
		{"姓名"},
		{"姓名", "账号", "备注"},
	})
	assert.Equal(t, 2, newLocator().ByMatch(s, tpl, MatchBestCount))

	// 单元格多于一个的行不算说明行
	s = grid.FromValues("S", [][]string{{"姓名", "备注"}})
	assert.Equal(t, 0, newLocator().ByMatch(s, tpl, MatchBestCount))
}

func TestParseHeaderMatchMode(t *testing.T) {
	t.Parallel()

	m, err := ParseHeaderMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchBestCount, m)

	m, err = ParseHeaderMatchMode("exact")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, m)

	_, err = ParseHeaderMatchMode("fuzzy")
	assert.Error(t, err)
}
