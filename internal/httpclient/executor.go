package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/internal/metrics"
)

// maxResponseBytes caps how much of a response body is buffered.
const maxResponseBytes = 10 << 20

// Result is a fully read HTTP response.
type Result struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Executor performs exactly one HTTP attempt per call, reads the whole body
// and records request metrics. Non-2xx statuses are returned as results, not
// errors: interpreting them is the caller's job.
type Executor struct {
	logger *zap.Logger
	http   *http.Client
	tag    string
}

// New creates an Executor. tag prefixes log event names (e.g. "etims").
func New(logger *zap.Logger, httpClient *http.Client, tag string) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{
		logger: logger,
		http:   httpClient,
		tag:    tag,
	}
}

// Do executes req once. An error is returned only when no response was
// received (network failure, timeout, cancelled context) or the body could
// not be read.
func (e *Executor) Do(req *http.Request) (*Result, error) {
	endpoint := req.URL.Path
	start := time.Now()

	resp, err := e.http.Do(req)
	if err != nil {
		metrics.IncAPIRequest(endpoint, req.Method, "transport_error")
		e.logger.Warn(e.tag+".http_failed",
			zap.String("method", req.Method),
			zap.String("endpoint", endpoint),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	metrics.ObserveDuration(metrics.APIRequestDuration, start, endpoint, req.Method)
	metrics.IncAPIRequest(endpoint, req.Method, strconv.Itoa(resp.StatusCode))
	if err != nil {
		e.logger.Warn(e.tag+".read_failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if resp.StatusCode >= 400 {
		e.logger.Warn(e.tag+".http_error_status",
			zap.String("method", req.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed),
			zap.ByteString("body", body))
	} else {
		e.logger.Debug(e.tag+".http_success",
			zap.String("method", req.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed))
	}

	return &Result{StatusCode: resp.StatusCode, Body: body, Elapsed: elapsed}, nil
}
