// Package netx moves attachment ciphertext to and from presigned blob URLs.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/sethvargo/go-retry"
)

// ErrStatus is returned for non-success HTTP responses.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the HTTP status of a failed blob request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// RetryPolicy configures backoff for transient blob failures.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// BlobClient performs PUT/GET against presigned URLs.
type BlobClient struct {
	http   *http.Client
	policy RetryPolicy
}

func NewBlobClient(hc *http.Client, policy RetryPolicy) *BlobClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &BlobClient{http: hc, policy: policy}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *BlobClient) do(ctx context.Context, op string, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var out []byte
	err := retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{Code: resp.StatusCode, Body: string(body)}
			if retryableStatus(resp.StatusCode) {
				return retry.RetryableError(serr)
			}
			return serr
		}
		out = body
		return nil
	})
	if err != nil {
		return nil, &common.TransportError{Op: op, Err: err}
	}
	return out, nil
}

// Put uploads data to url. headers are set verbatim, typically the
// Content-Type the URL was signed with.
func (c *BlobClient) Put(ctx context.Context, url string, headers map[string]string, data []byte) error {
	_, err := c.do(ctx, "blob put", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.ContentLength = int64(len(data))
		return req, nil
	})
	return err
}

// Get downloads the body at url. A 404 maps to common.NotFoundError.
func (c *BlobClient) Get(ctx context.Context, url string) ([]byte, error) {
	b, err := c.do(ctx, "blob get", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	var serr *StatusError
	if errors.As(err, &serr) && serr.Code == http.StatusNotFound {
		return nil, common.NewNotFoundError("blob")
	}
	return b, err
}
