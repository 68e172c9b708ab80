package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLogErrorWritesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("error", &buf)

	LogError(logger, "inventory", "Save", "location=1 date=2024-03-01", map[string]int{"rows": 2}, errors.New("disk full"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["module"] != "inventory" || entry["funcName"] != "Save" {
		t.Fatalf("missing module fields: %v", entry)
	}
	if entry["msg"] != "disk full" {
		t.Fatalf("unexpected message %v", entry["msg"])
	}
}

func TestLogErrorIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	LogError(New("info", &buf), "m", "f", "", nil, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	router := gin.New()
	router.Use(RequestLogger(New("info", &buf)))
	router.GET("/ping", func(c *gin.Context) {
		if _, ok := c.Get(RequestIDKey); !ok {
			t.Error("expected request id in context")
		}
		c.String(http.StatusOK, "pong")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if !strings.Contains(buf.String(), `"path":"/ping"`) {
		t.Fatalf("expected access log line, got %q", buf.String())
	}
}
