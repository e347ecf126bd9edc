// Package tracker bootstraps a GitHub Project V2 board with milestones,
// epic issues, and task issues from a declarative hierarchy file.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Default GitHub API endpoints.
const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultGraphQLURL = "https://api.github.com/graphql"
)

// maxResponseSize limits the API response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client talks to the GitHub REST and GraphQL APIs for one repository.
// Calls are single-shot; bootstrap runs are interactive enough that the
// operator simply reruns on failure.
type Client struct {
	apiBaseURL string
	graphqlURL string
	token      string
	owner      string
	repo       string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIBaseURL overrides the REST endpoint, mainly for tests.
func WithAPIBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.apiBaseURL = strings.TrimRight(url, "/")
	}
}

// WithGraphQLURL overrides the GraphQL endpoint, mainly for tests.
func WithGraphQLURL(url string) ClientOption {
	return func(client *Client) {
		client.graphqlURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a GitHub client for the given repository.
func NewClient(token, owner, repo string, opts ...ClientOption) *Client {
	c := &Client{
		apiBaseURL: DefaultAPIBaseURL,
		graphqlURL: DefaultGraphQLURL,
		token:      token,
		owner:      owner,
		repo:       repo,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SplitRepository splits an "owner/repo" slug into its parts.
func SplitRepository(slug string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("repository %q is not in owner/repo form", slug)
	}
	return owner, repo, nil
}

// IssueRequest describes an issue to create.
type IssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
}

// Issue is the subset of the created-issue response the bootstrap needs.
type Issue struct {
	Number  int    `json:"number"`
	NodeID  string `json:"node_id"`
	HTMLURL string `json:"html_url"`
}

// CreateMilestone creates a repository milestone and returns its number.
func (c *Client) CreateMilestone(ctx context.Context, title, description, dueOn string) (int, error) {
	payload := struct {
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
		DueOn       string `json:"due_on,omitempty"`
	}{Title: title, Description: description, DueOn: dueOn}

	var resp struct {
		Number int `json:"number"`
	}
	path := fmt.Sprintf("/repos/%s/%s/milestones", c.owner, c.repo)
	if err := c.doREST(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return 0, fmt.Errorf("create milestone %q: %w", title, err)
	}

	c.logger.Debug("Created milestone", "title", title, "number", resp.Number)
	return resp.Number, nil
}

// CreateIssue creates a repository issue.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/repos/%s/%s/issues", c.owner, c.repo)
	if err := c.doREST(ctx, http.MethodPost, path, req, &issue); err != nil {
		return nil, fmt.Errorf("create issue %q: %w", req.Title, err)
	}

	c.logger.Debug("Created issue", "title", req.Title, "number", issue.Number)
	return &issue, nil
}

// UpdateIssueBody replaces the body of an existing issue.
func (c *Client) UpdateIssueBody(ctx context.Context, number int, body string) error {
	payload := struct {
		Body string `json:"body"`
	}{Body: body}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d", c.owner, c.repo, number)
	if err := c.doREST(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("update issue #%d: %w", number, err)
	}
	return nil
}

// GraphQL documents for the Project V2 bootstrap.
const (
	queryOwnerID = `query($login: String!) {
  repositoryOwner(login: $login) { id }
}`

	mutationCreateProject = `mutation($ownerId: ID!, $title: String!) {
  createProjectV2(input: {ownerId: $ownerId, title: $title}) {
    projectV2 { id url }
  }
}`

	mutationSetProjectDescription = `mutation($projectId: ID!, $description: String!) {
  updateProjectV2(input: {projectId: $projectId, shortDescription: $description}) {
    projectV2 { id }
  }
}`

	queryStatusField = `query($projectId: ID!) {
  node(id: $projectId) {
    ... on ProjectV2 {
      field(name: "Status") {
        ... on ProjectV2SingleSelectField {
          id
          options { id name }
        }
      }
    }
  }
}`

	mutationAddItem = `mutation($projectId: ID!, $contentId: ID!) {
  addProjectV2ItemById(input: {projectId: $projectId, contentId: $contentId}) {
    item { id }
  }
}`

	mutationSetItemStatus = `mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $optionId: String!) {
  updateProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId, value: {singleSelectOptionId: $optionId}}) {
    projectV2Item { id }
  }
}`
)

// OwnerID resolves the GraphQL node ID of the repository owner.
func (c *Client) OwnerID(ctx context.Context) (string, error) {
	var out struct {
		RepositoryOwner struct {
			ID string `json:"id"`
		} `json:"repositoryOwner"`
	}
	vars := map[string]any{"login": c.owner}
	if err := c.doGraphQL(ctx, queryOwnerID, vars, &out); err != nil {
		return "", fmt.Errorf("resolve owner %s: %w", c.owner, err)
	}
	if out.RepositoryOwner.ID == "" {
		return "", fmt.Errorf("owner %s not found", c.owner)
	}
	return out.RepositoryOwner.ID, nil
}

// CreateProject creates a Project V2 board owned by ownerID and returns its
// node ID and URL.
func (c *Client) CreateProject(ctx context.Context, ownerID, title string) (id, url string, err error) {
	var out struct {
		CreateProjectV2 struct {
			ProjectV2 struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"projectV2"`
		} `json:"createProjectV2"`
	}
	vars := map[string]any{"ownerId": ownerID, "title": title}
	if err := c.doGraphQL(ctx, mutationCreateProject, vars, &out); err != nil {
		return "", "", fmt.Errorf("create project %q: %w", title, err)
	}

	project := out.CreateProjectV2.ProjectV2
	c.logger.Debug("Created project", "title", title, "url", project.URL)
	return project.ID, project.URL, nil
}

// SetProjectDescription sets the short description of a Project V2 board.
func (c *Client) SetProjectDescription(ctx context.Context, projectID, description string) error {
	vars := map[string]any{"projectId": projectID, "description": description}
	if err := c.doGraphQL(ctx, mutationSetProjectDescription, vars, nil); err != nil {
		return fmt.Errorf("set project description: %w", err)
	}
	return nil
}

// StatusField locates the built-in Status single-select field on a project
// and the option ID of its "To Do" column.
func (c *Client) StatusField(ctx context.Context, projectID string) (fieldID, todoOptionID string, err error) {
	var out struct {
		Node struct {
			Field struct {
				ID      string `json:"id"`
				Options []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"options"`
			} `json:"field"`
		} `json:"node"`
	}
	vars := map[string]any{"projectId": projectID}
	if err := c.doGraphQL(ctx, queryStatusField, vars, &out); err != nil {
		return "", "", fmt.Errorf("look up status field: %w", err)
	}

	field := out.Node.Field
	if field.ID == "" {
		return "", "", fmt.Errorf("project has no Status field")
	}
	for _, opt := range field.Options {
		if strings.EqualFold(opt.Name, "To Do") {
			return field.ID, opt.ID, nil
		}
	}
	return "", "", fmt.Errorf("status field has no To Do option")
}

// AddItemToProject adds an issue (by node ID) to a project and returns the
// project item ID.
func (c *Client) AddItemToProject(ctx context.Context, projectID, contentID string) (string, error) {
	var out struct {
		AddProjectV2ItemByID struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
		} `json:"addProjectV2ItemById"`
	}
	vars := map[string]any{"projectId": projectID, "contentId": contentID}
	if err := c.doGraphQL(ctx, mutationAddItem, vars, &out); err != nil {
		return "", fmt.Errorf("add item to project: %w", err)
	}
	return out.AddProjectV2ItemByID.Item.ID, nil
}

// SetItemStatus moves a project item into the given single-select option.
func (c *Client) SetItemStatus(ctx context.Context, projectID, itemID, fieldID, optionID string) error {
	vars := map[string]any{
		"projectId": projectID,
		"itemId":    itemID,
		"fieldId":   fieldID,
		"optionId":  optionID,
	}
	if err := c.doGraphQL(ctx, mutationSetItemStatus, vars, nil); err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	return nil
}

// doREST executes a single REST request with a JSON payload and response.
func (c *Client) doREST(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("github API error (status %d): %s", resp.StatusCode, truncate(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// doGraphQL executes a single GraphQL request and unmarshals the data
// envelope into out. API-level errors surface as Go errors.
func (c *Client) doGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	payload := struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables,omitempty"`
	}{Query: query, Variables: variables}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github API error (status %d): %s", resp.StatusCode, truncate(respBody))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}

func truncate(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
