package merge

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
	"sheetmerge/internal/parser"
	"sheetmerge/internal/rules"
)

const (
	// DefaultPreviewLimit 合并结果预览行数
	DefaultPreviewLimit = 500
	// DefaultWorkers 并发解码工作簿的数量
	DefaultWorkers = 4
)

// Options 引擎配置
type Options struct {
	Keywords        parser.Keywords
	Rules           *rules.Store
	Strategy        parser.StrategyKind
	HeaderMatch     parser.HeaderMatchMode
	ValidationLevel parser.ValidationLevel
	PreviewLimit    int
	Workers         int
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		Keywords:        parser.DefaultKeywords(),
		Rules:           rules.NewStore(),
		Strategy:        parser.StrategyAnchorKey,
		HeaderMatch:     parser.MatchBestCount,
		ValidationLevel: parser.ValidationStrict,
		PreviewLimit:    DefaultPreviewLimit,
		Workers:         DefaultWorkers,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	o.Keywords = o.Keywords.WithDefaults()
	if o.Rules == nil {
		o.Rules = d.Rules
	}
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.HeaderMatch == "" {
		o.HeaderMatch = d.HeaderMatch
	}
	if o.ValidationLevel == "" {
		o.ValidationLevel = d.ValidationLevel
	}
	if o.PreviewLimit <= 0 {
		o.PreviewLimit = d.PreviewLimit
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

// Journal 合并日志，只记录运行元数据
type Journal interface {
	CreateMergeRun(sessionID string, fileCount, templateCols int) (int64, error)
	AddMergeRunFile(runID int64, report model.FileReport) error
	FinishMergeRun(runID int64, mergedRows, issueCount int, status, errorMessage string) error
}

// ProgressFunc 合并进度回调
type ProgressFunc func(model.ProgressEvent)

// Engine 模板分析与合并引擎，本身无状态，可被多个会话共享
type Engine struct {
	opts    Options
	locator *parser.HeaderLocator
	journal Journal
	log     *zap.Logger
}

// NewEngine 创建引擎
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:    opts,
		locator: parser.NewHeaderLocator(opts.Keywords),
		log:     logger,
	}
}

// SetJournal 设置合并日志，nil 表示不记录
func (e *Engine) SetJournal(j Journal) {
	e.journal = j
}

// Options 当前生效的配置
func (e *Engine) Options() Options {
	return e.opts
}

// load 打开并解码一个工作簿，读取结束即释放
func (e *Engine) load(src Source) (wb *grid.Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("%v", r)
		}
	}()

	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return grid.Open(rc, src.Name)
}

func emit(fn ProgressFunc, typ, message string, data interface{}) {
	if fn == nil {
		return
	}
	fn(model.ProgressEvent{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Export 把会话中最近一次合并结果写成工作簿
func (e *Engine) Export(sess *Session, w io.Writer) error {
	sess.mu.Lock()
	tpl, rows, merged := sess.template, sess.rows, sess.merged
	sess.mu.Unlock()

	if tpl == nil || !merged {
		return ErrNothingToExport
	}
	if err := WriteWorkbook(w, tpl.Headers, rows); err != nil {
		return err
	}
	e.log.Info("exported merged rows", zap.String("session", sess.ID), zap.Int("rows", len(rows)))
	return nil
}
