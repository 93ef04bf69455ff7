// Package ado talks to the Azure DevOps work item tracking REST API.
package ado

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/steveyegge/dupwatch/internal/logger"
	"github.com/steveyegge/dupwatch/internal/types"
)

// APIVersion is the REST API version requested on every call.
const APIVersion = "6.0"

// TokenSource supplies the bearer token for a request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access or OAuth token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("access token is empty")
	}
	return string(t), nil
}

// Location resolves where the work item API lives and which project to use.
type Location interface {
	BaseURL(ctx context.Context) (string, error)
	ProjectName(ctx context.Context) (string, error)
}

// StaticLocation is a Location read from configuration.
type StaticLocation struct {
	URL     string // e.g. https://dev.azure.com/contoso/
	Project string
}

func (l StaticLocation) BaseURL(context.Context) (string, error) {
	if l.URL == "" {
		return "", fmt.Errorf("organization URL is not configured")
	}
	return l.URL, nil
}

func (l StaticLocation) ProjectName(context.Context) (string, error) {
	if l.Project == "" {
		return "", fmt.Errorf("project is not configured")
	}
	return l.Project, nil
}

// Options configure the client.
type Options struct {
	// Transport carries requests; install the retrying fetch.Transport here
	Transport http.RoundTripper
	// Timeout bounds a whole call including retries (0 = none)
	Timeout time.Duration
}

// Client is a minimal work item tracking client.
type Client struct {
	http     *resty.Client
	location Location
	tokens   TokenSource
}

// NewClient creates a client. Retries are left to opts.Transport; resty's own
// retry loop is disabled so a request is never retried twice over.
func NewClient(location Location, tokens TokenSource, opts Options) (*Client, error) {
	if location == nil {
		return nil, fmt.Errorf("location cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if opts.Transport != nil {
		c.SetTransport(opts.Transport)
	}
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}

	return &Client{http: c, location: location, tokens: tokens}, nil
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	WorkItems []struct {
		ID  int    `json:"id"`
		URL string `json:"url,omitempty"`
	} `json:"workItems"`
}

// QueryIDs runs the open-items query and returns identifiers newest first.
func (c *Client) QueryIDs(ctx context.Context, filter types.QueryFilter) ([]int, error) {
	endpoint, err := c.endpoint(ctx, "wiql")
	if err != nil {
		return nil, err
	}
	params := url.Values{"api-version": {APIVersion}}
	if filter.Top > 0 {
		params.Set("$top", strconv.Itoa(filter.Top))
	}

	var out wiqlResponse
	resp, err := c.request(ctx).
		SetBody(wiqlRequest{Query: BuildWIQL(filter)}).
		SetResult(&out).
		Post(endpoint + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("wiql query failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("wiql query failed: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	ids := make([]int, 0, len(out.WorkItems))
	for _, wi := range out.WorkItems {
		ids = append(ids, wi.ID)
	}
	return ids, nil
}

type batchRequest struct {
	IDs    []int    `json:"ids"`
	Expand string   `json:"$expand"`
	Fields []string `json:"fields"`
}

type batchResponse struct {
	Count int `json:"count"`
	Value []struct {
		ID     int            `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"value"`
}

// FetchBatch retrieves the given fields for ids in one call.
//
// A non-2xx answer is not an error: the status is returned for the caller to
// judge. An error means the request could not be completed at all.
func (c *Client) FetchBatch(ctx context.Context, ids []int, fields []string) (*types.BatchResponse, error) {
	endpoint, err := c.endpoint(ctx, "workitemsbatch")
	if err != nil {
		return nil, err
	}

	var out batchResponse
	resp, err := c.request(ctx).
		SetBody(batchRequest{IDs: ids, Expand: "None", Fields: fields}).
		SetResult(&out).
		Post(endpoint + "?api-version=" + APIVersion)
	if err != nil {
		return nil, fmt.Errorf("work items batch failed: %w", err)
	}

	result := &types.BatchResponse{StatusCode: resp.StatusCode()}
	if !resp.IsSuccess() {
		logger.FromContext(ctx).Debug("Work items batch returned non-success status",
			"status", resp.StatusCode(), "ids", len(ids))
		return result, nil
	}

	result.Items = make([]types.WorkItemRef, 0, len(out.Value))
	for _, v := range out.Value {
		result.Items = append(result.Items, types.WorkItemRef{
			ID:          v.ID,
			Title:       stringField(v.Fields, types.FieldTitle),
			Description: stringField(v.Fields, types.FieldDescription),
		})
	}
	return result, nil
}

// request builds an authorized request bound to ctx.
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	token, err := c.tokens.Token(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("No access token available, sending anonymous request", "error", err)
		return req
	}
	return req.SetAuthToken(token)
}

// endpoint returns {base}/{project}/_apis/wit/{resource}.
func (c *Client) endpoint(ctx context.Context, resource string) (string, error) {
	base, err := c.location.BaseURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base URL: %w", err)
	}
	project, err := c.location.ProjectName(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project: %w", err)
	}
	return strings.TrimSuffix(base, "/") + "/" + url.PathEscape(project) + "/_apis/wit/" + resource, nil
}

// BuildWIQL renders the candidate query for filter.
func BuildWIQL(filter types.QueryFilter) string {
	states := filter.ExcludedStates
	if len(states) == 0 {
		states = []string{"Closed"}
	}

	var b strings.Builder
	b.WriteString("SELECT [" + types.FieldID + "] FROM WorkItems WHERE ")
	if filter.WorkItemType != "" {
		fmt.Fprintf(&b, "[%s] = %s AND ", types.FieldWorkItemType, quote(filter.WorkItemType))
	}
	for i, s := range states {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "[%s] <> %s", types.FieldState, quote(s))
	}
	fmt.Fprintf(&b, " ORDER BY [%s] DESC", types.FieldCreatedDate)
	return b.String()
}

// quote renders a WIQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
