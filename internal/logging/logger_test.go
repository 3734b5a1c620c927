package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"solar-inventory-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func TestRequestLoggerRecordsRenderedStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info")
	logger.SetOutput(&buf)

	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(logrus.New())})
	app.Use(RequestLogger(logger))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/conflict", func(c *fiber.Ctx) error { return apperr.Conflict("already dispatched") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db down") })

	cases := []struct {
		path   string
		status int
		level  string
	}{
		{"/ok", 200, "info"},
		{"/conflict", 400, "warning"},
		{"/boom", 500, "error"},
		{"/missing", 404, "warning"},
	}
	for _, tc := range cases {
		buf.Reset()
		resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil), -1)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if resp.StatusCode != tc.status {
			t.Errorf("%s: response status = %d, want %d", tc.path, resp.StatusCode, tc.status)
		}

		var line struct {
			Status int    `json:"status"`
			Level  string `json:"level"`
		}
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("%s: log line %q: %v", tc.path, buf.String(), err)
		}
		if line.Status != tc.status || line.Level != tc.level {
			t.Errorf("%s: logged status=%d level=%s, want %d %s", tc.path, line.Status, line.Level, tc.status, tc.level)
		}
	}
}
