package traverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/modcache/internal/cache"
	"github.com/any-hub/modcache/internal/deps"
	"github.com/any-hub/modcache/internal/importmap"
	"github.com/any-hub/modcache/internal/logging"
	"github.com/any-hub/modcache/internal/metrics"
)

// Extractor lists the dependency specifiers referenced by a module source.
type Extractor interface {
	Extract(specifier string, source []byte) ([]string, error)
}

// Resolver resolves a specifier against the identifier of the module importing it.
type Resolver interface {
	Resolve(referrer, specifier string) (string, error)
}

// Fetcher downloads a module and persists it in the cache.
type Fetcher interface {
	FetchAndStore(ctx context.Context, locator string) ([]byte, error)
}

// Options 汇总 Engine 的依赖，全部为必填项（Logger 除外）。
type Options struct {
	Store     cache.Store
	Fetcher   Fetcher
	Extractor Extractor
	Resolver  Resolver
	Logger    *logrus.Logger
}

// RunOptions 是单次遍历的参数，在遍历期间保持不变。
type RunOptions struct {
	ImportMap *importmap.ImportMap
	Reload    cache.ReloadDirective
}

// Summary 描述一次遍历的结果。
type Summary struct {
	RunID    string        `json:"run_id"`
	Root     string        `json:"root"`
	Visited  int           `json:"visited"`
	Fetched  int           `json:"fetched"`
	Reused   int           `json:"reused"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

// Engine 持有遍历所需的协作者，可被多个 goroutine 共享；每次 Run 自带独立的栈与 visited 集合。
type Engine struct {
	store     cache.Store
	fetcher   Fetcher
	extractor Extractor
	resolver  Resolver
	logger    *logrus.Logger
}

// NewEngine validates dependencies and builds an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Extractor == nil {
		return nil, errors.New("dependency extractor is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("specifier resolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Engine{
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		resolver:  opts.Resolver,
		logger:    logger,
	}, nil
}

type pending struct {
	specifier string
	// referrer 是导入方 import map 替换后的 URL，仅用于匹配 scopes。
	referrer string
}

// Run 以 root 为起点缓存整个依赖图。root 不是远程 URL 时直接返回（本地文件无需缓存）。
// 每个解析后的标识符在一次 Run 中只处理一次，循环依赖因此可以终止；
// 是否回源仍只由 ReloadDirective 与磁盘状态决定。
func (e *Engine) Run(ctx context.Context, root string, opts RunOptions) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString(), Root: root}
	if !cache.IsRemote(root) {
		return summary, nil
	}

	started := time.Now()
	err := e.run(ctx, root, opts, summary)
	summary.Duration = time.Since(started)

	outcome := "ok"
	fields := logrus.Fields{
		"action":  "traverse",
		"run_id":  summary.RunID,
		"root":    root,
		"reload":  opts.Reload.String(),
		"visited": summary.Visited,
		"fetched": summary.Fetched,
		"reused":  summary.Reused,
		"skipped": summary.Skipped,
		"elapsed": summary.Duration.String(),
	}
	if err != nil {
		outcome = "error"
		e.logger.WithError(err).WithFields(fields).Error("traverse_failed")
	} else {
		e.logger.WithFields(fields).Info("traverse_complete")
	}
	metrics.ObserveTraversal(outcome, summary.Duration)

	return summary, err
}

func (e *Engine) run(ctx context.Context, root string, opts RunOptions, summary *Summary) error {
	policy := cache.NewPolicy(e.store, opts.Reload)
	visited := make(map[string]struct{})
	stack := []pending{{specifier: root}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		resolved := opts.ImportMap.Resolve(item.specifier, item.referrer)
		if !cache.IsRemote(resolved) {
			if deps.HasScheme(resolved) {
				summary.Skipped++
				e.logger.WithFields(logrus.Fields{
					"run_id":    summary.RunID,
					"specifier": resolved,
					"referrer":  item.referrer,
				}).Debug("module_skipped")
				continue
			}
			return fmt.Errorf("%w: %q imported by %s", deps.ErrUnresolvable, item.specifier, item.referrer)
		}

		if _, seen := visited[resolved]; seen {
			continue
		}
		visited[resolved] = struct{}{}
		summary.Visited++

		source, hit, err := e.load(ctx, policy, resolved)
		if err != nil {
			return err
		}
		if hit {
			summary.Reused++
		} else {
			summary.Fetched++
		}
		e.logger.WithFields(logging.ModuleFields(summary.RunID, resolved, hit)).Debug("module_cached")

		specifiers, err := e.extractor.Extract(resolved, source)
		if err != nil {
			return fmt.Errorf("extract dependencies of %s: %w", resolved, err)
		}

		for _, specifier := range specifiers {
			// 相对说明符基于替换前的原始标识符解析，保证别名空间内的相对引用仍可被 import map 映射。
			next, err := e.resolver.Resolve(item.specifier, specifier)
			if err != nil {
				return fmt.Errorf("resolve %q from %s: %w", specifier, item.specifier, err)
			}
			stack = append(stack, pending{specifier: next, referrer: resolved})
		}
	}
	return nil
}

// load 根据策略回源或读取缓存，hit 表示复用了磁盘上的正文。
func (e *Engine) load(ctx context.Context, policy cache.Policy, locator string) ([]byte, bool, error) {
	refetch, err := policy.ShouldRefetch(ctx, locator)
	if err != nil {
		return nil, false, fmt.Errorf("check cache %s: %w", locator, err)
	}
	if refetch {
		source, err := e.fetcher.FetchAndStore(ctx, locator)
		if err != nil {
			return nil, false, err
		}
		return source, false, nil
	}

	source, err := cache.ReadAll(ctx, e.store, locator)
	if err != nil {
		return nil, true, fmt.Errorf("read cache %s: %w", locator, err)
	}
	metrics.RecordCacheHit()
	return source, true, nil
}
