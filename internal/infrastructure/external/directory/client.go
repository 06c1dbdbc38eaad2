package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

// Config holds directory service settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client looks up users and projects in the external HR/project directory over JSON HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

// NewClient creates a directory client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		logger:     logger,
	}
}

// GetUser implements port.Directory
func (c *Client) GetUser(ctx context.Context, externalID string) (*port.DirectoryUser, error) {
	var user port.DirectoryUser
	found, err := c.get(ctx, "/users/"+url.PathEscape(externalID), &user)
	if err != nil || !found {
		return nil, err
	}
	if user.ExternalID == "" {
		user.ExternalID = externalID
	}
	return &user, nil
}

// GetProject implements port.Directory
func (c *Client) GetProject(ctx context.Context, externalID string) (*port.DirectoryProject, error) {
	var project port.DirectoryProject
	found, err := c.get(ctx, "/projects/"+url.PathEscape(externalID), &project)
	if err != nil || !found {
		return nil, err
	}
	if project.ExternalID == "" {
		project.ExternalID = externalID
	}
	return &project, nil
}

// get returns found=false on 404 so unknown ids are not treated as outages
func (c *Client) get(ctx context.Context, path string, respBody any) (bool, error) {
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, respBody)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		c.logger.Warn("Directory request failed",
			zap.String("path", path),
			zap.Int("status", status),
			zap.Error(err))
		return false, err
	}
	return true, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("directory base url is not configured")
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(b) > 0 {
			return resp.StatusCode, fmt.Errorf("directory api error: status=%d body=%s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, fmt.Errorf("directory api error: status=%d", resp.StatusCode)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("decode directory response failed: %w body=%s", err, string(b))
		}
	}
	return resp.StatusCode, nil
}

// Verify interface compliance
var _ port.Directory = (*Client)(nil)
