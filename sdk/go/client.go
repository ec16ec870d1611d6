// Package tenurelinesdk is a minimal client for the Tenureline browse API.
package tenurelinesdk

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
)

// Client talks to one Tenureline server.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Tenure is the API tenure model.
type Tenure struct {
	TenureID       string     `json:"tenure_id"`
	OfficerID      string     `json:"officer_id"`
	PostID         string     `json:"post_id"`
	Role           string     `json:"role"`
	StartDate      string     `json:"start_date"`
	StartOrderID   string     `json:"start_order_id"`
	StartDetailIdx int        `json:"start_detail_idx"`
	EndDate        string     `json:"end_date,omitempty"`
	EndOrderID     string     `json:"end_order_id,omitempty"`
	EndDetailIdx   int        `json:"end_detail_idx"`
	ManagerIDs     []string   `json:"manager_ids,omitempty"`
	ReporteeIDs    []string   `json:"reportee_ids,omitempty"`
	AllOrderInfos  []OrderRef `json:"all_order_infos"`
}

// OrderRef points at one detail inside one order.
type OrderRef struct {
	OrderID   string `json:"order_id"`
	DetailIdx int    `json:"detail_idx"`
}

// Officer is the API officer model.
type Officer struct {
	OfficerID string `json:"officer_id"`
	Name      string `json:"name"`
	FullName  string `json:"full_name,omitempty"`
	Cadre     string `json:"cadre,omitempty"`
}

// OfficerDetail is an officer together with their tenures.
type OfficerDetail struct {
	Officer Officer  `json:"officer"`
	Tenures []Tenure `json:"tenures"`
}

// DataError is one plausibility problem found during a build.
type DataError struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Summary describes the built corpus.
type Summary struct {
	Orders       int            `json:"orders"`
	Officers     int            `json:"officers"`
	Tenures      int            `json:"tenures"`
	ErrorsByKind map[string]int `json:"errors_by_kind"`
}

// TenureFilters narrow ListTenures; zero values mean no filter.
type TenureFilters struct {
	OfficerID string
	PostID    string
	Role      string
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ListTenures lists tenures, optionally filtered.
func (c *Client) ListTenures(ctx context.Context, f TenureFilters) ([]Tenure, error) {
	q := url.Values{}
	if f.OfficerID != "" {
		q.Set("officer_id", f.OfficerID)
	}
	if f.PostID != "" {
		q.Set("post_id", f.PostID)
	}
	if f.Role != "" {
		q.Set("role", f.Role)
	}
	endpoint := "v0/tenures"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Tenure
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetTenure fetches one tenure by id.
func (c *Client) GetTenure(ctx context.Context, id string) (Tenure, error) {
	var resp Tenure
	err := c.do(ctx, http.MethodGet, "v0/tenures/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// GetOfficer fetches an officer with their tenures.
func (c *Client) GetOfficer(ctx context.Context, id string) (OfficerDetail, error) {
	var resp OfficerDetail
	err := c.do(ctx, http.MethodGet, "v0/officers/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListErrors lists the data errors of the last build, optionally by kind.
func (c *Client) ListErrors(ctx context.Context, kind string) ([]DataError, error) {
	endpoint := "v0/errors"
	if kind != "" {
		endpoint += "?kind=" + url.QueryEscape(kind)
	}
	var resp []DataError
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Summary fetches corpus counts.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, "v0/summary", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
