package main

import (
	"fmt"

	"sheetmerge/internal/config"
	"sheetmerge/internal/parser"
	"sheetmerge/internal/rules"
	"sheetmerge/internal/service/merge"
)

// engineOptions 由配置生成引擎参数
func engineOptions(cfg *config.AppConfig) (merge.Options, error) {
	store, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return merge.Options{}, fmt.Errorf("加载模板规则失败: %w", err)
	}
	level, err := parser.ParseValidationLevel(cfg.Merge.ValidationLevel)
	if err != nil {
		return merge.Options{}, err
	}
	strategy, err := parser.ParseStrategyKind(cfg.Merge.Strategy)
	if err != nil {
		return merge.Options{}, err
	}
	match, err := parser.ParseHeaderMatchMode(cfg.Merge.HeaderMatch)
	if err != nil {
		return merge.Options{}, err
	}

	return merge.Options{
		Keywords:        cfg.Keywords.Keywords(),
		Rules:           store,
		Strategy:        strategy,
		HeaderMatch:     match,
		ValidationLevel: level,
		PreviewLimit:    cfg.Merge.PreviewLimit,
		Workers:         cfg.Merge.Workers,
	}, nil
}
