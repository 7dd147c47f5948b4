package lidarr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/goplexarr/internal/config"
	"github.com/sirupsen/logrus"
)

const apiPrefix = "/api/v1"

// Client handles communication with the Lidarr API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Lidarr API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.LidarrURL == "" {
		return nil, fmt.Errorf("lidarr URL is required")
	}
	if cfg.LidarrAPIKey == "" {
		return nil, fmt.Errorf("lidarr API key is required")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.LidarrURL, "/"),
		apiKey:  cfg.LidarrAPIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// doRequest performs an authenticated request against the Lidarr API and
// decodes the JSON response into result when given
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("Making Lidarr API request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lidarr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("lidarr API returned status %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// DeleteTrack deletes a track from Lidarr, including its file on disk
func (c *Client) DeleteTrack(ctx context.Context, trackID int64) error {
	params := url.Values{}
	params.Set("deleteFiles", "true")

	path := fmt.Sprintf("/track/%d", trackID)
	if err := c.doRequest(ctx, http.MethodDelete, path, params, nil); err != nil {
		return fmt.Errorf("failed to delete track %d: %w", trackID, err)
	}

	c.logger.WithField("track_id", trackID).Info("Lidarr track deleted")
	return nil
}
