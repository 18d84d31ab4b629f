package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rs/zerolog/log"
)

// APIError is a non-2xx response from the asset API
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("asset API error (status %d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("asset API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the asset API. It implements Committer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Committer = (*Client)(nil)

// NewClient creates a client for the API rooted at baseURL. A nil httpClient
// gets a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type orderRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type projectsResponse struct {
	Projects []models.ProjectSummary `json:"projects"`
}

type imagesResponse struct {
	Images []models.Image `json:"images"`
}

// CommitOrder sends the complete order of a scope as one batch
func (c *Client) CommitOrder(ctx context.Context, scope Scope, ids []uuid.UUID) error {
	path := "/projects/order"
	if !scope.IsProjects() {
		path = fmt.Sprintf("/project/%s/images/order", scope.ProjectID)
	}
	if err := c.do(ctx, http.MethodPut, path, orderRequest{IDs: ids}, nil); err != nil {
		return err
	}
	log.Debug().Str("scope", scope.String()).Int("count", len(ids)).Msg("order committed")
	return nil
}

// ListProjects returns the project summaries in display order
func (c *Client) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	var resp projectsResponse
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// ListImages returns the images of a project in display order
func (c *Client) ListImages(ctx context.Context, projectID uuid.UUID) ([]models.Image, error) {
	var resp imagesResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/project/%s/images", projectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// LoadProjectsView lists the projects and wraps their order in an OrderView
func (c *Client) LoadProjectsView(ctx context.Context) (*OrderView, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return NewOrderView(ProjectsScope(), c, ids), nil
}

// LoadImagesView lists a project's images and wraps their order in an OrderView
func (c *Client) LoadImagesView(ctx context.Context, projectID uuid.UUID) (*OrderView, error) {
	images, err := c.ListImages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return NewOrderView(ImagesScope(projectID), c, ids), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(bodyBytes))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
