package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sheetmerge/internal/parser"
	"sheetmerge/internal/service/merge"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <template>",
		Short: "分析模板并输出表头、列类型和必填列",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := engineOptions(a.cfg)
			if err != nil {
				return err
			}
			engine := merge.NewEngine(opts, a.logger)

			info, err := engine.AnalyzeTemplate(cmd.Context(), merge.NewSession(), merge.FileSource(args[0]))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	var (
		templatePath string
		outPath      string
		strategy     string
		headerMatch  string
		lenient      bool
	)

	cmd := &cobra.Command{
		Use:   "merge --template <模板> [文件...]",
		Short: "按模板合并多份表格并导出汇总文件",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := engineOptions(a.cfg)
			if err != nil {
				return err
			}
			if strategy != "" {
				if opts.Strategy, err = parser.ParseStrategyKind(strategy); err != nil {
					return err
				}
			}
			if headerMatch != "" {
				if opts.HeaderMatch, err = parser.ParseHeaderMatchMode(headerMatch); err != nil {
					return err
				}
			}
			if lenient {
				opts.ValidationLevel = parser.ValidationLenient
			}

			return runMerge(cmd, merge.NewEngine(opts, a.logger), templatePath, outPath, args)
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "模板文件 (必填)")
	cmd.Flags().StringVarP(&outPath, "out", "o", merge.ExportFileName, "汇总文件输出路径")
	cmd.Flags().StringVar(&strategy, "strategy", "", "行识别策略 anchor_key / serial_keyword")
	cmd.Flags().StringVar(&headerMatch, "header-match", "", "表头匹配方式 exact / best_count")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "宽松校验：不检查必填项")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func runMerge(cmd *cobra.Command, engine *merge.Engine, templatePath, outPath string, files []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	sess := merge.NewSession()
	info, err := engine.AnalyzeTemplate(ctx, sess, merge.FileSource(templatePath))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "模板: %s (表头第 %d 行, %d 列)\n", info.SheetName, info.HeaderRowIndex, len(info.Headers))

	sources := make([]merge.Source, 0, len(files))
	for _, path := range files {
		sources = append(sources, merge.FileSource(path))
	}
	result, err := engine.Merge(ctx, sess, sources, nil)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Fprintf(out, "  %-30s %-8s %d 行\n", f.FileName, f.Status, f.MergedRows)
	}
	for _, issue := range result.Issues {
		loc := issue.FileName
		if issue.SheetName != "" {
			loc += " / " + issue.SheetName
		}
		if issue.RowNo > 0 {
			loc += fmt.Sprintf(" 第%d行", issue.RowNo)
		}
		if issue.ColumnName != "" {
			loc += " [" + issue.ColumnName + "]"
		}
		fmt.Fprintf(out, "问题: %s %s\n", loc, issue.Message)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := engine.Export(sess, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "合并完成: 共 %d 行, %d 个问题, 已写入 %s\n", result.TotalRows, len(result.Issues), outPath)
	return nil
}
