package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"  姓名 ", "姓名"},
		{"金额\n（元）", "金额"},
		{"*账号(必填)", "账号"},
		{"存放 地点", "存放地点"},
		{"金额(万元）备注(选填)", "金额"},
		{"   ", ""},
		{"", ""},
		{"(仅注释)", ""},
		{"a(b(c)d)e", "ad)e"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeHeader(tc.in), tc.in)
	}
}

func TestNormalizeHeader_Idempotent(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"  *金额\r\n(元)  ", "((a))", "a(b(c)d)e", "(x)(", "序 号", "账户（类型）*",
		"（注）　姓名", "姓　名", "金额(万元）备注(选填)", "(（x)）", "（a(）b)"} {
		once := NormalizeHeader(s)
		assert.Equal(t, once, NormalizeHeader(once), s)
	}
}

func TestNormalizeHeader_UnicodeSpaces(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "姓名", NormalizeHeader("（注）　姓名"))
	assert.Equal(t, "姓名", NormalizeHeader("姓\u3000名"))
	assert.Equal(t, "账号", NormalizeHeader("\u00a0账\u2002号\ufeff"))
}

func TestNormalizeHeader_BracketPairsByWidth(t *testing.T) {
	t.Parallel()

	// 全角、半角括号分两遍删除，不跨宽度配对
	assert.Equal(t, "金额", NormalizeHeader("金额(万元）备注(选填)"))
	assert.Equal(t, "金额", NormalizeHeader("金额（元)）"))
}

func TestSplitKeywords(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"账号", "卡号", "证件号", "资产编号"}, SplitKeywords(" 账号，卡号;证件号；; ,资产编号 "))
	assert.Nil(t, SplitKeywords(" ,;， "))
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsAny("设备序列号", []string{"", "序列号"}))
	assert.False(t, ContainsAny("姓名", []string{""}))
	assert.False(t, ContainsAny("姓名", nil))
}
