package routes

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/modcache/internal/cache"
	"github.com/any-hub/modcache/internal/deps"
	"github.com/any-hub/modcache/internal/fetch"
	"github.com/any-hub/modcache/internal/importmap"
	"github.com/any-hub/modcache/internal/metrics"
	"github.com/any-hub/modcache/internal/server"
	"github.com/any-hub/modcache/internal/traverse"
)

// CacheOptions 汇总缓存路由的依赖；ImportMap 为配置中的默认 import map，可为空。
type CacheOptions struct {
	Store     cache.Store
	Engine    *traverse.Engine
	ImportMap *importmap.ImportMap
	Logger    *logrus.Logger
}

type cacheRoutes struct {
	opts  CacheOptions
	group singleflight.Group
}

type cacheRequest struct {
	URL       string                `json:"url"`
	Reload    cache.ReloadDirective `json:"reload"`
	ImportMap *importmap.ImportMap  `json:"import_map,omitempty"`
}

type resolvePayload struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	Cached bool   `json:"cached"`
}

// RegisterCacheRoutes 暴露 /-/resolve、/-/cache、/-/module、/-/metadata 与 /-/metrics。
func RegisterCacheRoutes(app *fiber.App, opts CacheOptions) {
	if app == nil || opts.Store == nil || opts.Engine == nil {
		return
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	r := &cacheRoutes{opts: opts}

	app.Get("/-/resolve", r.resolve)
	app.Post("/-/cache", r.cache)
	app.Get("/-/module", r.module)
	app.Get("/-/metadata", r.metadata)
	app.Get("/-/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func (r *cacheRoutes) resolve(c fiber.Ctx) error {
	locator := strings.TrimSpace(c.Query("url"))
	if locator == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
	}

	resolved := r.opts.Store.Deriver().Resolve(locator)
	payload := resolvePayload{URL: locator, Path: resolved}
	if !cache.IsRemote(locator) {
		return c.JSON(payload)
	}
	if _, err := r.opts.Store.Stat(c.Context(), locator); err == nil {
		payload.Cached = true
	} else if !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	return c.JSON(payload)
}

func (r *cacheRoutes) cache(c fiber.Ctx) error {
	var req cacheRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "detail": err.Error()})
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
	}
	im := r.opts.ImportMap
	if req.ImportMap != nil {
		if err := req.ImportMap.Validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_import_map", "detail": err.Error()})
		}
		im = req.ImportMap
	}

	// 带内联 import map 的请求不合并，避免不同映射共享同一结果。
	run := func() (any, error) {
		return r.opts.Engine.Run(c.Context(), req.URL, traverse.RunOptions{ImportMap: im, Reload: req.Reload})
	}
	var (
		value  any
		err    error
		shared bool
	)
	if req.ImportMap == nil {
		value, err, shared = r.group.Do(req.URL+"\x00"+req.Reload.String(), run)
	} else {
		value, err = run()
	}

	r.opts.Logger.WithFields(logrus.Fields{
		"action":     "cache",
		"request_id": server.RequestID(c),
		"url":        req.URL,
		"shared":     shared,
	}).Debug("cache_request")

	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": "cache_failed", "detail": err.Error()})
	}
	return c.JSON(value.(*traverse.Summary))
}

func (r *cacheRoutes) module(c fiber.Ctx) error {
	locator, err := requireRemote(c)
	if err != nil || locator == "" {
		return err
	}
	meta, err := r.opts.Store.Metadata(c.Context(), locator)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	result, err := r.opts.Store.Get(c.Context(), locator)
	if errors.Is(err, cache.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_cached"})
	}
	if err != nil {
		return err
	}
	if meta != nil {
		for key, value := range server.ReplayHeaders(meta.Headers) {
			c.Set(key, value)
		}
	}
	c.Set("X-Modcache-Path", result.Entry.FilePath)
	return c.SendStream(result.Reader, int(result.Entry.SizeBytes))
}

func (r *cacheRoutes) metadata(c fiber.Ctx) error {
	locator, err := requireRemote(c)
	if err != nil || locator == "" {
		return err
	}
	meta, err := r.opts.Store.Metadata(c.Context(), locator)
	if errors.Is(err, cache.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_cached"})
	}
	if err != nil {
		return err
	}
	return c.JSON(meta)
}

// requireRemote 读取 url 参数；参数缺失或不是远程 URL 时直接写出 400 响应并返回空串。
func requireRemote(c fiber.Ctx) (string, error) {
	locator := strings.TrimSpace(c.Query("url"))
	if locator == "" {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
	}
	if !cache.IsRemote(locator) {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "not_remote"})
	}
	return locator, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, fetch.ErrUpstreamStatus), errors.Is(err, fetch.ErrUnsupportedEncoding):
		return fiber.StatusBadGateway
	case errors.Is(err, deps.ErrUnresolvable):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
