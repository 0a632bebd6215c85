package parser

import "strings"

// DefaultMinKeyHits 默认关键列命中下限
const DefaultMinKeyHits = 2

// Keywords 行分类与表头识别使用的关键词配置
// 每个字段为空时使用内置默认值，见 WithDefaults。
type Keywords struct {
	// AnchorKeywords 强标识列：账号、卡号等，有值即视为数据行
	AnchorKeywords []string
	// KeyFieldKeywords 业务关键列：需要命中 MinKeyHits 个才视为数据行
	KeyFieldKeywords []string
	// ExcludedKeywords 不参与锚点/关键列判定，也不算核心列
	ExcludedKeywords []string
	// TotalKeywords 合计行标记，出现后停止读取当前文件
	TotalKeywords []string
	MinKeyHits    int

	// SerialKeyKeywords 序号策略下的关键列
	SerialKeyKeywords []string
	// InstructionKeywords 填表说明类文本
	InstructionKeywords []string
	// SerialHeaders 序号列表头（整列匹配，大小写不敏感）
	SerialHeaders []string
	// FixedValueKeywords 固定枚举列，例如账户类型
	FixedValueKeywords []string
}

// DefaultKeywords 内置关键词
func DefaultKeywords() Keywords {
	return Keywords{
		AnchorKeywords:   []string{"账号", "卡号", "证件号", "设备序列号", "资产编号", "设备编号"},
		KeyFieldKeywords: []string{"姓名", "单位", "网点", "部门", "金额", "数量", "用途", "存放地点", "管理员", "项目", "指标", "设备类型", "规格型号", "设备名称", "资产名称"},
		ExcludedKeywords: []string{"序号", "序次", "行号", "备注", "说明", "填报人", "填表人", "填报日期", "填表日期"},
		TotalKeywords:    []string{"小计", "合计", "总计"},
		MinKeyHits:       DefaultMinKeyHits,
		SerialKeyKeywords: []string{
			"设备类型及名称", "设备类型名称", "设备类型", "规格型号", "设备序列号", "设备序号", "管理人", "使用人",
		},
		InstructionKeywords: []string{
			"填写", "说明", "注意", "示例", "要求", "口径", "备注", "提示", "温馨提示", "如实",
			"以下", "请按", "请填写", "填报", "填表", "规则", "校验", "检查",
		},
		SerialHeaders:      []string{"序号", "序", "编号", "行号", "序列", "no"},
		FixedValueKeywords: []string{"账户类型", "账户类别"},
	}
}

// WithDefaults 用默认值补齐未设置的字段
func (k Keywords) WithDefaults() Keywords {
	d := DefaultKeywords()
	if len(k.AnchorKeywords) == 0 {
		k.AnchorKeywords = d.AnchorKeywords
	}
	if len(k.KeyFieldKeywords) == 0 {
		k.KeyFieldKeywords = d.KeyFieldKeywords
	}
	if len(k.ExcludedKeywords) == 0 {
		k.ExcludedKeywords = d.ExcludedKeywords
	}
	if len(k.TotalKeywords) == 0 {
		k.TotalKeywords = d.TotalKeywords
	}
	if k.MinKeyHits <= 0 {
		k.MinKeyHits = d.MinKeyHits
	}
	if len(k.SerialKeyKeywords) == 0 {
		k.SerialKeyKeywords = d.SerialKeyKeywords
	}
	if len(k.InstructionKeywords) == 0 {
		k.InstructionKeywords = d.InstructionKeywords
	}
	if len(k.SerialHeaders) == 0 {
		k.SerialHeaders = d.SerialHeaders
	}
	if len(k.FixedValueKeywords) == 0 {
		k.FixedValueKeywords = d.FixedValueKeywords
	}
	return k
}

// IsSerialHeader 序号类表头
func (k Keywords) IsSerialHeader(normalized string) bool {
	if normalized == "" {
		return false
	}
	for _, h := range k.SerialHeaders {
		if strings.EqualFold(h, normalized) {
			return true
		}
	}
	return false
}

// IsFixedValueHeader 固定枚举类表头
func (k Keywords) IsFixedValueHeader(normalized string) bool {
	return ContainsAny(normalized, k.FixedValueKeywords)
}

// IsIgnorableForRows 行判定时忽略的列：序号和固定枚举
func (k Keywords) IsIgnorableForRows(normalized string) bool {
	return k.IsSerialHeader(normalized) || k.IsFixedValueHeader(normalized)
}

// IsExcludedHeader 不参与锚点/关键列判定的列
func (k Keywords) IsExcludedHeader(normalized string) bool {
	return k.IsIgnorableForRows(normalized) || ContainsAny(normalized, k.ExcludedKeywords)
}

// LooksLikeInstruction 文本是否像填表说明
func (k Keywords) LooksLikeInstruction(text string) bool {
	return text != "" && ContainsAny(text, k.InstructionKeywords)
}
