package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/goplexarr/internal/config"
	"github.com/sirupsen/logrus"
)

// Client handles communication with the Plex server API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Plex API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.PlexURL == "" {
		return nil, fmt.Errorf("plex URL is required")
	}
	if cfg.PlexToken == "" {
		return nil, fmt.Errorf("plex token is required")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.PlexURL, "/"),
		token:   cfg.PlexToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// doRequest performs an authenticated GET against the Plex API and decodes
// the XML response into result
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.baseURL + path

	c.logger.WithField("url", fullURL).Debug("Making Plex API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("plex API returned status %d: %s", resp.StatusCode, string(body))
	}

	decoder := xml.NewDecoder(resp.Body)
	if err := decoder.Decode(result); err != nil {
		return fmt.Errorf("failed to parse XML response: %w", err)
	}

	return nil
}

// metadataPath builds the track-detail path for a rating key
func metadataPath(ratingKey string) string {
	return "/library/metadata/" + url.PathEscape(ratingKey)
}
