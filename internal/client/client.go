// Package client is a typed HTTP client for the proposal API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"proposaldesk/internal/proposal"
	"proposaldesk/internal/search"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

// WithToken authenticates subsequent requests.
func (c *Client) WithToken(token string) *Client {
	c.http.SetAuthToken(token)
	return c
}

type LoginResult struct {
	Token     string              `json:"token"`
	User      proposal.ActingUser `json:"user"`
	ExpiresAt int64               `json:"expiresAt"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, "POST", "/api/session/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *Client) Proposal(ctx context.Context, id string) (proposal.Proposal, error) {
	var out proposal.Proposal
	err := c.do(ctx, "GET", "/api/proposals/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Proposals(ctx context.Context, department, status string) ([]proposal.Proposal, error) {
	query := url.Values{}
	if department != "" {
		query.Set("department", department)
	}
	if status != "" {
		query.Set("status", status)
	}
	path := "/api/proposals"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out struct {
		Proposals []proposal.Proposal `json:"proposals"`
	}
	err := c.do(ctx, "GET", path, nil, &out)
	return out.Proposals, err
}

func (c *Client) Thread(ctx context.Context, id string) ([]proposal.ThreadGroup, error) {
	var out struct {
		Groups []proposal.ThreadGroup `json:"groups"`
	}
	err := c.do(ctx, "GET", "/api/proposals/"+url.PathEscape(id)+"/thread", nil, &out)
	return out.Groups, err
}

func (c *Client) History(ctx context.Context, id string) ([]proposal.HistoryEntry, error) {
	var out struct {
		History []proposal.HistoryEntry `json:"history"`
	}
	err := c.do(ctx, "GET", "/api/proposals/"+url.PathEscape(id)+"/history", nil, &out)
	return out.History, err
}

func (c *Client) Review(ctx context.Context, id, decision, comment string) (proposal.Proposal, error) {
	var out proposal.Proposal
	body := map[string]string{"decision": decision, "comment": comment}
	err := c.do(ctx, "POST", "/api/proposals/"+url.PathEscape(id)+"/reviews", body, &out)
	return out, err
}

func (c *Client) Edit(ctx context.Context, id string, content proposal.Content) (proposal.Proposal, error) {
	var out proposal.Proposal
	err := c.do(ctx, "PUT", "/api/proposals/"+url.PathEscape(id), content, &out)
	return out, err
}

func (c *Client) Reply(ctx context.Context, id, text string) (proposal.Proposal, error) {
	var out proposal.Proposal
	err := c.do(ctx, "POST", "/api/proposals/"+url.PathEscape(id)+"/replies", map[string]string{"text": text}, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, text string, limit int) (search.Response, error) {
	query := url.Values{"q": {text}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out search.Response
	err := c.do(ctx, "GET", "/api/search?"+query.Encode(), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &APIError{}
	req := c.http.R().SetContext(ctx).SetResult(result).SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Code == "" {
			apiErr.Code = "HTTP_ERROR"
			apiErr.Message = resp.Status()
		}
		return apiErr
	}
	return nil
}
