package serv2sdk

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

// Client is a minimal Serv2 HTTP API client.
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

// Goal represents a project goal.
type Goal struct {
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Selected bool   `json:"selected"`
	Deadline string `json:"deadline"`
}

// Project represents the API project model.
type Project struct {
	Name                string   `json:"name"`
	ID                  string   `json:"id"`
	Employees           []string `json:"employees"`
	Goals               []Goal   `json:"goals"`
	Dependencies        []string `json:"dependencies"`
	StartDate           string   `json:"startDate"`
	EndDate             string   `json:"endDate"`
	Rating              float64  `json:"rating"`
	CustomerRating      any      `json:"customerRating"`
	Deadline            string   `json:"deadline"`
	FinalCompletionDate string   `json:"finalCompletionDate,omitempty"`
}

// Status is a status catalog entry.
type Status struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Token is the response to login and register calls.
type Token struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var tok Token
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &tok)
	if err == nil {
		c.BearerToken = tok.AccessToken
	}
	return tok, err
}

// Register creates a user and stores the bearer token on the client.
func (c *Client) Register(ctx context.Context, firstName, lastName, username, password, role string) (Token, error) {
	var tok Token
	err := c.do(ctx, http.MethodPost, "auth/register", map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
		"username":  username,
		"password":  password,
		"role":      role,
	}, &tok)
	if err == nil {
		c.BearerToken = tok.AccessToken
	}
	return tok, err
}

// Projects lists one category. Tag is "projects", "generation" or "realization";
// empty means the default category.
func (c *Client) Projects(ctx context.Context, tag string) ([]Project, error) {
	endpoint := "projects"
	switch tag {
	case "generation", "realization":
		endpoint = "projects/" + tag
	}
	var out []Project
	err := c.do(ctx, http.MethodGet, endpoint, nil, &out)
	return out, err
}

// AllProjects lists every category in fixed order.
func (c *Client) AllProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.do(ctx, http.MethodGet, "projects/all", nil, &out)
	return out, err
}

// CreateProject creates a project in the given category (empty for default).
func (c *Client) CreateProject(ctx context.Context, p Project, tag string) (Project, error) {
	body := map[string]any{
		"name":         p.Name,
		"id":           p.ID,
		"employees":    p.Employees,
		"goals":        p.Goals,
		"dependencies": p.Dependencies,
		"startDate":    p.StartDate,
		"endDate":      p.EndDate,
		"deadline":     p.Deadline,
	}
	if tag != "" {
		body["type"] = tag
	}
	var out Project
	err := c.do(ctx, http.MethodPost, "projects", body, &out)
	return out, err
}

// DeleteProject removes a project. Tag is required by the server.
func (c *Client) DeleteProject(ctx context.Context, id, tag string) error {
	endpoint := "projects/" + url.PathEscape(id) + "?type=" + url.QueryEscape(tag)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// SetGoalStatus sets one goal's status.
func (c *Client) SetGoalStatus(ctx context.Context, id, goalName, status, tag string) error {
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/status", map[string]string{
		"status":   status,
		"type":     tag,
		"goalName": goalName,
	}, nil)
}

// SetRating sets a manager or customer rating. For ratingType "manager"
// the rating must be numeric.
func (c *Client) SetRating(ctx context.Context, id, ratingType string, rating any, tag string) error {
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/rating", map[string]any{
		"ratingType": ratingType,
		"rating":     rating,
		"type":       tag,
	}, nil)
}

// SetCompletionDate records the final completion date.
func (c *Client) SetCompletionDate(ctx context.Context, id, date, tag string) error {
	body := map[string]string{"date": date}
	if tag != "" {
		body["type"] = tag
	}
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/completion-date", body, nil)
}

// SelectGoal marks one goal as the current one.
func (c *Client) SelectGoal(ctx context.Context, id, goalName, tag string) error {
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/goal", map[string]string{
		"goalName": goalName,
		"type":     tag,
	}, nil)
}

// Transfer reassigns a project to a single employee.
func (c *Client) Transfer(ctx context.Context, id, newEmployee string) error {
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/transfer", map[string]string{
		"newEmployee": newEmployee,
	}, nil)
}

// AddEmployee adds an employee to a project.
func (c *Client) AddEmployee(ctx context.Context, id, newEmployee string) error {
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/add-employee", map[string]string{
		"newEmployee": newEmployee,
	}, nil)
}

// RemoveEmployee removes every occurrence of an employee from a project.
func (c *Client) RemoveEmployee(ctx context.Context, id, employee string) error {
	return c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(id)+"/remove-employee", map[string]string{
		"employeeToRemove": employee,
	}, nil)
}

// EnsureCategoryFile makes sure a category's backing collection exists.
func (c *Client) EnsureCategoryFile(ctx context.Context, tag string) error {
	return c.do(ctx, http.MethodPost, "createProjectFile", map[string]string{"type": tag}, nil)
}

// Statuses fetches the status catalog.
func (c *Client) Statuses(ctx context.Context) ([]Status, error) {
	var out []Status
	err := c.do(ctx, http.MethodGet, "statuses.json", nil, &out)
	return out, err
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
