package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetmerge/internal/model"
)

func TestResolve_KeywordRuleFallback(t *testing.T) {
	t.Parallel()

	res := NewStore().Resolve([]string{"网点名称", "姓名", "账号", "金额", "账号金额", "备注", "用途"})
	assert.Equal(t, KeywordRuleName, res.Rule)
	assert.Equal(t, []string{"网点名称", "姓名", "账号"}, res.Required)
}

func TestResolve_LargestSubsetWins(t *testing.T) {
	t.Parallel()

	s := NewStore(
		Rule("基础", []string{"姓名"}, []string{"姓名"}),
		Rule("设备台账", []string{"序号", "设备类型", "规格型号"}, []string{"设备类型", "管理人"}),
		Rule("设备台账-重复", []string{"设备类型", "规格型号", "序号"}, []string{"规格型号"}),
		Rule("不匹配", []string{"序号", "设备类型", "规格型号", "资产编号"}, []string{"资产编号"}),
	)

	res := s.Resolve([]string{"序号", "设备类型", "规格型号", "姓名"})
	assert.Equal(t, "设备台账", res.Rule)
	assert.Equal(t, []string{"设备类型"}, res.Required, "管理人 has no column and is dropped")
}

func TestResolve_NormalizesRuleHeaders(t *testing.T) {
	t.Parallel()

	s := NewStore(Rule("账户", []string{"账号（必填）", " 姓名 "}, []string{"*账号"}))
	res := s.Resolve([]string{"姓名", "账号", "金额"})
	assert.Equal(t, "账户", res.Rule)
	assert.Equal(t, []string{"账号"}, res.Required)
}

func TestParse_Formats(t *testing.T) {
	t.Parallel()

	jsonData := []byte(`{"templates":[{"name":"设备","matchHeaders":["序号","设备类型"],"requiredHeaders":["设备类型"],"strategy":"serial_keyword"}]}`)
	tomlData := []byte(`
[[templates]]
name = "设备"
match_headers = ["序号", "设备类型"]
required_headers = ["设备类型"]
strategy = "serial_keyword"
header_match = "exact"
`)
	yamlData := []byte(`
templates:
  - name: 设备
    match_headers: [序号, 设备类型]
    required_headers: [设备类型]
    strategy: serial_keyword
`)

	for name, data := range map[string][]byte{"r.json": jsonData, "r.toml": tomlData, "r.yaml": yamlData} {
		rules, err := Parse(name, data)
		require.NoError(t, err, name)
		require.Len(t, rules, 1, name)
		assert.Equal(t, "设备", rules[0].Name, name)
		assert.Equal(t, []string{"序号", "设备类型"}, rules[0].MatchHeaders, name)
		assert.Equal(t, []string{"设备类型"}, rules[0].RequiredHeaders, name)
		assert.Equal(t, "serial_keyword", rules[0].Strategy, name)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse("r.ini", []byte("x"))
	assert.Error(t, err)

	_, err = Parse("r.json", []byte(`{"templates":[{"name":"x","strategy":"guess"}]}`))
	assert.Error(t, err)

	_, err = Parse("r.json", []byte(`{`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	s, err := Load("")
	require.NoError(t, err)
	assert.Len(t, s.Rules(), 1)

	path := filepath.Join(t.TempDir(), "template-config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"templates":[{"name":"a","matchHeaders":["姓名"],"requiredHeaders":["姓名"]}]}`), 0644))
	s, err = Load(path)
	require.NoError(t, err)
	require.Len(t, s.Rules(), 2)
	assert.Equal(t, KeywordRuleName, s.Rules()[1].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReplace_KeepsBuiltinLast(t *testing.T) {
	t.Parallel()

	s := NewStore(Rule("旧", []string{"姓名"}, nil))
	s.Replace([]model.TemplateRule{Rule("新", []string{"账号"}, []string{"账号"})})

	rules := s.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "新", rules[0].Name)
	assert.Equal(t, KeywordRuleName, rules[1].Name)
}
