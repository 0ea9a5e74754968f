package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var errDaemonUnreachable = errors.New("presenced control API is not reachable")

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("control API: %s", http.StatusText(e.Status))
	}

	return fmt.Sprintf("control API: %s", e.Message)
}

// baseURL resolves the control API root from --addr or daemon.listen_addr.
func (c *cli) baseURL() (*url.URL, error) {
	cfg, _, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	addr := strings.TrimSpace(cfg.Daemon.ListenAddr)
	if addr == "" {
		return nil, errors.New("control API is disabled: daemon.listen_addr is empty and --addr is not set")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse control API address %q: %w", addr, err)
	}

	return u, nil
}

// call sends body as JSON and decodes a 2xx response into out when out is not nil.
func (c *cli) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	base, err := c.baseURL()
	if err != nil {
		return err
	}
	u := base.JoinPath(path)
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("%w at %s: %v", errDaemonUnreachable, base.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

		return &apiError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode control API response: %w", err)
	}

	return nil
}
