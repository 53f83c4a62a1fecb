// Package transport holds the HTTP plumbing shared by the provider adapters: one JSON
// POST per call, bounded body reads, and mapping of failures onto models.ErrorKind.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// MaxResponseBytes bounds how much of a provider response body is read.
const MaxResponseBytes = 4 << 20

// Sentinel errors for provider calls.
var (
	ErrEmptyCompletion = errors.New("provider returned no completion text")
	ErrBadStatus       = errors.New("provider returned non-2xx status")
)

// StatusError carries the HTTP status and a short body excerpt of a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrBadStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrBadStatus }

// NewClient returns an HTTP client for provider calls. Per-call deadlines come from
// the request context; the client timeout is only a backstop.
func NewClient(backstop time.Duration) *http.Client {
	return &http.Client{Timeout: backstop}
}

// PostJSON marshals payload, sends exactly one POST to rawURL with the given headers
// and returns the response body of a 2xx response. Non-2xx responses yield a
// *StatusError. Errors never include rawURL, which may embed a credential.
func PostJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", redact(err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, redact(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", redact(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: excerpt(respBody, 512)}
	}
	return respBody, nil
}

// Classify maps an error from PostJSON onto an ErrorKind.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return ""
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ClassifyStatus(statusErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.ErrorKindTimeout
		}
		return models.ErrorKindNetworkError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return models.ErrorKindNetworkError
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return models.ErrorKindNetworkError
	}
	return models.ErrorKindUnknown
}

// ClassifyStatus maps a non-2xx HTTP status onto an ErrorKind.
func ClassifyStatus(code int) models.ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrorKindAuthFailure
	case http.StatusTooManyRequests:
		return models.ErrorKindRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return models.ErrorKindTimeout
	default:
		return models.ErrorKindUnknown
	}
}

// redact strips the request URL from *url.Error so query-embedded keys never reach logs.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// excerpt returns at most n bytes of b, cut back to a rune boundary.
func excerpt(b []byte, n int) string {
	if len(b) > n {
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		b = b[:n]
	}
	return string(bytes.TrimSpace(b))
}
