package server

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

func TestRouterServesHealthz(t *testing.T) {
	app := newTestApp(t, &bytes.Buffer{})

	resp, err := app.Test(httptest.NewRequest("GET", "/-/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"ok"`)) {
		t.Fatalf("unexpected body: %s", string(body))
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestRouterExposesRequestIDToHandlers(t *testing.T) {
	app := newTestApp(t, &bytes.Buffer{})
	var seen string
	app.Get("/-/echo", func(c fiber.Ctx) error {
		seen = RequestID(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/-/echo", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if seen == "" || seen != resp.Header.Get("X-Request-ID") {
		t.Fatalf("handler should observe the response request id, got %q vs %q", seen, resp.Header.Get("X-Request-ID"))
	}
}

func TestRouterLogsFailedRequests(t *testing.T) {
	logs := &bytes.Buffer{}
	app := newTestApp(t, logs)
	app.Get("/-/boom", func(c fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/-/boom", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.StatusCode)
	}
	if !bytes.Contains(logs.Bytes(), []byte("request_failed")) {
		t.Fatalf("expected request_failed log, got %s", logs.String())
	}
}

func TestRouterRecoversFromPanics(t *testing.T) {
	app := newTestApp(t, &bytes.Buffer{})
	app.Get("/-/panic", func(c fiber.Ctx) error {
		panic("unexpected")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/-/panic", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.StatusCode)
	}
}

func TestNewAppRequiresLogger(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("missing logger should fail")
	}
}

func newTestApp(t *testing.T, out io.Writer) *fiber.App {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	app, err := NewApp(AppOptions{Logger: logger})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}
