// Package update checks the release feed for a newer build.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Release is the subset of a GitHub release the checker reads.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result describes how the running build compares to the latest release.
type Result struct {
	Current  string
	Latest   string
	URL      string
	Outdated bool
	Ahead    bool
}

// Client queries the release feed.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a new release client.
func New(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Latest fetches the latest release.
func (c *Client) Latest(ctx context.Context) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Release{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("release request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("failed to decode release: %w", err)
	}
	if rel.TagName == "" {
		return Release{}, fmt.Errorf("release has no tag")
	}
	return rel, nil
}

// Check compares current against the latest release.
func (c *Client) Check(ctx context.Context, current string) (Result, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return Result{}, err
	}

	cmp, err := Compare(current, rel.TagName)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Current:  current,
		Latest:   strings.TrimPrefix(rel.TagName, "v"),
		URL:      rel.HTMLURL,
		Outdated: cmp < 0,
		Ahead:    cmp > 0,
	}, nil
}

// CheckAndLog runs Check and logs the outcome. Failures are logged at
// debug level only.
func (c *Client) CheckAndLog(ctx context.Context, current string, logger *slog.Logger) {
	res, err := c.Check(ctx, current)
	if err != nil {
		logger.Debug("update check failed", "error", err)
		return
	}
	switch {
	case res.Outdated:
		logger.Warn("a newer version is available",
			"current", res.Current, "latest", res.Latest, "url", res.URL)
	case res.Ahead:
		logger.Info("running a development build", "current", res.Current, "latest", res.Latest)
	default:
		logger.Debug("running the latest version", "current", res.Current)
	}
}

// Compare orders two dotted numeric versions, ignoring a leading "v" and
// any "-suffix". Missing components count as zero.
func Compare(a, b string) (int, error) {
	pa, err := parse(a)
	if err != nil {
		return 0, err
	}
	pb, err := parse(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x < y {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func parse(v string) ([]int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil, fmt.Errorf("invalid version %q", v)
	}
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version %q", v)
		}
		out[i] = n
	}
	return out, nil
}
