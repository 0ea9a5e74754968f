package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
)

const (
	defaultUpdateCheckInterval  = 12 * time.Hour
	defaultUpdateRequestTimeout = 15 * time.Second
	DefaultReleaseQueryURL      = "https://git.skobk.in/api/v1/repos/skobkin/presencego/releases?draft=false&pre-release=false&limit=5"
)

type UpdateCheckerDependencies struct {
	CurrentVersion string
	Endpoint       string
	HTTPClient     *http.Client
	Interval       time.Duration
	// MessageBus receives every successful snapshot; nil keeps them local.
	MessageBus bus.MessageBus
	Logger     *slog.Logger
}

// UpdateChecker periodically fetches releases and publishes update snapshots.
type UpdateChecker struct {
	currentVersion string
	endpoint       string
	client         *http.Client
	interval       time.Duration
	bus            bus.MessageBus
	logger         *slog.Logger

	mu          sync.RWMutex
	latest      connectors.UpdateSnapshot
	latestKnown bool

	startOnce sync.Once
}

type forgejoRelease struct {
	TagName     string    `json:"tag_name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

func NewUpdateChecker(deps UpdateCheckerDependencies) *UpdateChecker {
	endpoint := strings.TrimSpace(deps.Endpoint)
	if endpoint == "" {
		endpoint = DefaultReleaseQueryURL
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultUpdateRequestTimeout}
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = defaultUpdateCheckInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "app.updates")
	}

	return &UpdateChecker{
		currentVersion: strings.TrimSpace(deps.CurrentVersion),
		endpoint:       endpoint,
		client:         client,
		interval:       interval,
		bus:            deps.MessageBus,
		logger:         logger,
	}
}

// Start checks once right away and then every interval until ctx is done.
func (c *UpdateChecker) Start(ctx context.Context) {
	if c == nil {
		return
	}

	c.startOnce.Do(func() {
		go c.run(ctx)
	})
}

func (c *UpdateChecker) CurrentSnapshot() (connectors.UpdateSnapshot, bool) {
	if c == nil {
		return connectors.UpdateSnapshot{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.latest, c.latestKnown
}

// Check fetches releases once and stores the result without publishing it.
func (c *UpdateChecker) Check(ctx context.Context) (connectors.UpdateSnapshot, error) {
	snapshot, err := c.fetchSnapshot(ctx)
	if err != nil {
		return connectors.UpdateSnapshot{}, err
	}

	c.mu.Lock()
	c.latest = snapshot
	c.latestKnown = true
	c.mu.Unlock()

	return snapshot, nil
}

func (c *UpdateChecker) run(ctx context.Context) {
	c.logger.Info("update checker started", "endpoint", c.endpoint, "interval", c.interval.String(), "current_version", c.currentVersion)

	c.checkAndPublish(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("update checker stopped")

			return
		case <-ticker.C:
			c.logger.Debug("running scheduled update check")
			c.checkAndPublish(ctx)
		}
	}
}

func (c *UpdateChecker) checkAndPublish(ctx context.Context) {
	snapshot, err := c.Check(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("check for updates", "error", err)
		}

		return
	}

	if c.bus != nil {
		c.bus.Publish(connectors.TopicUpdateSnapshot, snapshot)
	}
	c.logger.Info(
		"update check completed",
		"current_version", snapshot.CurrentVersion,
		"latest_version", snapshot.Latest.Version,
		"update_available", snapshot.UpdateAvailable,
	)
}

func (c *UpdateChecker) fetchSnapshot(ctx context.Context) (connectors.UpdateSnapshot, error) {
	releases, err := c.fetchReleases(ctx)
	if err != nil {
		return connectors.UpdateSnapshot{}, err
	}
	if len(releases) == 0 {
		return connectors.UpdateSnapshot{}, fmt.Errorf("release API response is empty")
	}

	latest := releases[0]

	return connectors.UpdateSnapshot{
		CurrentVersion:  c.currentVersion,
		Latest:          latest,
		Releases:        releases,
		UpdateAvailable: isReleaseNewer(c.currentVersion, latest.Version),
		CheckedAt:       time.Now().UTC(),
	}, nil
}

func (c *UpdateChecker) fetchReleases(ctx context.Context) ([]connectors.ReleaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create releases request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request releases: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			return nil, fmt.Errorf("request releases: unexpected status %d: %s", resp.StatusCode, trimmed)
		}

		return nil, fmt.Errorf("request releases: unexpected status %d", resp.StatusCode)
	}

	var payload []forgejoRelease
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode releases response: %w", err)
	}

	releases := make([]connectors.ReleaseInfo, 0, len(payload))
	for _, item := range payload {
		version := strings.TrimSpace(item.TagName)
		if version == "" {
			continue
		}
		releases = append(releases, connectors.ReleaseInfo{
			Version:     version,
			Body:        strings.TrimSpace(item.Body),
			HTMLURL:     strings.TrimSpace(item.HTMLURL),
			PublishedAt: item.PublishedAt,
		})
	}

	return releases, nil
}

// isReleaseNewer treats a non-semver current version (dev builds) as older than any release.
func isReleaseNewer(currentVersion string, latestVersion string) bool {
	current := normalizeSemver(currentVersion)
	latest := normalizeSemver(latestVersion)

	if !semver.IsValid(latest) {
		return false
	}
	if !semver.IsValid(current) {
		return true
	}

	return semver.Compare(current, latest) < 0
}

func normalizeSemver(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		return "v" + trimmed
	}

	return trimmed
}
