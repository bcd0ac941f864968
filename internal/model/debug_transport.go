package model

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"llamachat-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// DebugTransport 自定义HTTP传输层，用于调试请求体
type DebugTransport struct {
	base         http.RoundTripper
	debugEnabled bool
}

// NewDebugTransport 创建新的调试传输层
func NewDebugTransport(base http.RoundTripper, debugEnabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{
		base:         base,
		debugEnabled: debugEnabled,
	}
}

// RoundTrip 实现http.RoundTripper接口
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.debugEnabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.debugEnabled {
		logger.Errorf("[LLM Debug] Request failed: %v", err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": RedactHeaders(req.Header),
	}

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("[LLM Debug] Failed to read request body: %v", err)
			return
		}
		// 恢复请求体，以免影响实际请求
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		fields["body"] = string(bodyBytes)
		fields["body_size"] = len(bodyBytes)
	}

	logger.WithFields(fields).Info("[LLM Debug] request")
}

// RedactHeaders flattens headers for logging with credentials masked.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name) {
			out[name] = "[REDACTED]"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "x-api-key", "x-auth-token", "cookie":
		return true
	}
	return false
}
