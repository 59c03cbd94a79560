// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package ossvc is the thin OpenSearch administrative HTTP client,
// built on go-resty/resty/v2 and accepting an alternate-host list for
// failover across cluster-manager-eligible nodes.
package ossvc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransportError wraps a failure to reach any configured host (DNS, dial,
// TLS handshake) as distinct from an HTTP-status error.
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ossvc: transport failure reaching %s: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError wraps an HTTP response whose status code is not in the 2xx
// range.
type StatusError struct {
	Host       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ossvc: %s returned status %d: %s", e.Host, e.StatusCode, e.Body)
}

// BasicAuth holds the admin credentials used against the cluster admin
// surface.
type BasicAuth struct {
	Username string
	Password string
}

// Client issues administrative requests:
// Request(method, path, payload, retries, timeout, altHosts) -> JSON,
// distinguishing transport vs HTTP-status errors.
type Client struct {
	hosts  []string
	auth   BasicAuth
	tlsCfg *tls.Config
	log    *zap.SugaredLogger
	rc     *resty.Client
}

// New builds a Client targeting the given primary host (e.g.
// "opensearch-0.svc:9200"); additional hosts may be passed per-request as
// altHosts.
func New(primaryHost string, auth BasicAuth, tlsCfg *tls.Config, log *zap.SugaredLogger) *Client {
	rc := resty.New().SetTLSClientConfig(tlsCfg)
	return &Client{
		hosts:  []string{primaryHost},
		auth:   auth,
		tlsCfg: tlsCfg,
		log:    log,
		rc:     rc,
	}
}

// Request issues method against path on the primary host, falling back to
// each of altHosts in order on transport failure, retrying up to retries
// times per host with a fixed 1s pause between attempts, and unmarshals a
// 2xx JSON response body into out. A non-2xx response is returned
// immediately as a *StatusError without retrying or falling back --
// retry policy for that case belongs to the caller via internal/retry.
func (c *Client) Request(ctx context.Context, method, path string, payload interface{}, retries int, timeout time.Duration, altHosts []string, out interface{}) error {
	hosts := append([]string{c.hosts[0]}, altHosts...)
	correlationID := uuid.NewString()

	var lastErr error
	for _, host := range hosts {
		for attempt := 0; attempt < retries; attempt++ {
			err := c.do(ctx, host, method, path, payload, timeout, out, correlationID)
			if err == nil {
				return nil
			}
			var statusErr *StatusError
			if asStatusError(err, &statusErr) {
				return statusErr
			}
			lastErr = &TransportError{Host: host, Err: err}
			if c.log != nil {
				c.log.Warnw("ossvc request failed, retrying", "host", host, "path", path, "attempt", attempt+1, "request_id", correlationID, "error", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, host, method, path string, payload interface{}, timeout time.Duration, out interface{}, correlationID string) error {
	req := c.rc.R().
		SetContext(ctx).
		SetBasicAuth(c.auth.Username, c.auth.Password).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-Id", correlationID)
	if payload != nil {
		req.SetBody(payload)
	}
	if out != nil {
		req.SetResult(out)
	}
	c.rc.SetTimeout(timeout)

	url := fmt.Sprintf("https://%s%s", host, path)
	resp, err := req.Execute(method, url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &StatusError{Host: host, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func asStatusError(err error, target **StatusError) bool {
	se, ok := err.(*StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}
