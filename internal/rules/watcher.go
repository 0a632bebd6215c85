package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce 连续保存只触发一次重新加载
const DefaultDebounce = 300 * time.Millisecond

// Watcher 监听规则文件变化并重新加载到 Store
// 监听的是所在目录，编辑器先写临时文件再改名的保存方式也能收到事件。
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	done     chan struct{}

	// OnReload 每次重新加载后调用，err 为 nil 表示成功
	OnReload func(err error)
}

// NewWatcher 创建规则文件监听器
func NewWatcher(store *Store, path string, logger *zap.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("rules path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		store:    store,
		path:     abs,
		debounce: DefaultDebounce,
		watcher:  fw,
		log:      logger,
		done:     make(chan struct{}),
	}, nil
}

// Run 阻塞直到 ctx 取消，返回前关闭底层监听
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("rules file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("rules watcher error", zap.Error(err))

		case <-timer.C:
			w.reload()
		}
	}
}

// Done Run 退出后关闭
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *Watcher) reload() {
	err := w.store.Reload(w.path)
	if err != nil {
		w.log.Warn("failed to reload rules, keeping previous rules", zap.String("path", w.path), zap.Error(err))
	} else {
		w.log.Info("rules reloaded", zap.String("path", w.path), zap.Int("rules", len(w.store.Rules())))
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
