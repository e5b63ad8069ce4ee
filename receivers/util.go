package receivers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const userAgent = "alerting"

// NewClient returns the HTTP client shared by all notifiers. Per-attempt
// deadlines come from the request context, so the client itself carries no
// overall timeout.
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}

// HTTPCfg describes one outbound delivery request.
type HTTPCfg struct {
	URL         string
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// SendHTTPRequest performs one POST and returns the response status code.
// A non-2xx response is not an error here: the status code is outcome data
// for the caller to record. The returned error is non-nil only when no
// response was obtained at all (bad request, network failure, timeout).
func SendHTTPRequest(ctx context.Context, client *http.Client, cfg HTTPCfg, logger log.Logger) (int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(cfg.Body))
	if err != nil {
		return 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	request.Header.Set("Content-Type", cfg.ContentType)
	request.Header.Set("User-Agent", userAgent)
	for k, v := range cfg.Headers {
		request.Header.Set(k, v)
	}

	resp, err := client.Do(request)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			level.Warn(logger).Log("msg", "failed to close response body", "error", err)
		}
	}()

	// Drain so the connection can be reused.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		level.Warn(logger).Log("msg", "failed to read response body", "error", err)
	}

	if resp.StatusCode/100 != 2 {
		level.Warn(logger).Log("msg", "delivery request failed", "url", MaskURL(cfg.URL), "statusCode", resp.StatusCode)
	} else {
		level.Debug(logger).Log("msg", "delivery request succeeded", "url", MaskURL(cfg.URL), "statusCode", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
