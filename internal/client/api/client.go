// Package api is a thin JSON client for the vault server. It keeps the access
// token between calls and translates error bodies into Go errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a decoded error body from the server.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if derr := json.NewDecoder(resp.Body).Decode(apiErr); derr != nil {
			apiErr.Kind = "Internal"
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Login exchanges an email for an access token and stores it for later calls.
func (c *Client) Login(ctx context.Context, email string) (string, bool, error) {
	var out struct {
		AccessToken  string `json:"access_token"`
		UserID       string `json:"user_id"`
		HasMasterKey bool   `json:"has_master_key"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/token", map[string]string{"email": email}, &out)
	if err != nil {
		return "", false, err
	}
	c.token = out.AccessToken
	return out.UserID, out.HasMasterKey, nil
}

type Project struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) CreateProject(ctx context.Context, name, passcode, masterKey string) (*Project, error) {
	var out Project
	err := c.do(ctx, http.MethodPost, "/api/projects", map[string]string{
		"name":       name,
		"passcode":   passcode,
		"master_key": masterKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Unlock(ctx context.Context, projectID, passcode string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+projectID+"/unlock", map[string]string{"passcode": passcode}, nil)
}

func (c *Client) Lock(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+projectID+"/lock", nil, nil)
}

func (c *Client) RecoverPasscode(ctx context.Context, projectID, masterKey string) (string, error) {
	var out struct {
		Passcode string `json:"passcode"`
	}
	err := c.do(ctx, http.MethodPost, "/api/projects/"+projectID+"/recover", map[string]string{"master_key": masterKey}, &out)
	return out.Passcode, err
}

func (c *Client) RotateMasterKey(ctx context.Context, oldKey, newKey string) (int, error) {
	var out struct {
		ReencryptedProjects int `json:"reencrypted_projects"`
	}
	err := c.do(ctx, http.MethodPost, "/api/master-key/rotate", map[string]string{
		"old_master_key": oldKey,
		"new_master_key": newKey,
	}, &out)
	return out.ReencryptedProjects, err
}

type Environment struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) ListEnvironments(ctx context.Context, projectID string) ([]Environment, error) {
	var out []Environment
	err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/environments", nil, &out)
	return out, err
}

func (c *Client) SetVariable(ctx context.Context, projectID, environmentID, name, value string) error {
	path := fmt.Sprintf("/api/projects/%s/environments/%s/variables/%s", projectID, environmentID, name)
	return c.do(ctx, http.MethodPut, path, map[string]string{"value": value}, nil)
}

func (c *Client) GetVariable(ctx context.Context, projectID, environmentID, name string) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	path := fmt.Sprintf("/api/projects/%s/environments/%s/variables/%s", projectID, environmentID, name)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Value, err
}

func (c *Client) ListVariables(ctx context.Context, projectID, environmentID string) (map[string]string, error) {
	var out struct {
		Variables map[string]string `json:"variables"`
	}
	path := fmt.Sprintf("/api/projects/%s/environments/%s/variables", projectID, environmentID)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Variables, err
}

type Share struct {
	ID string `json:"id"`
}

// CreateShare mints a public share of the named variables and returns its ID
// and the share passcode to hand out.
func (c *Client) CreateShare(ctx context.Context, projectID, environmentID string, names []string, maxViews *int) (string, string, error) {
	var out struct {
		Share    Share  `json:"share"`
		Passcode string `json:"passcode"`
	}
	path := fmt.Sprintf("/api/projects/%s/environments/%s/shares", projectID, environmentID)
	err := c.do(ctx, http.MethodPost, path, map[string]any{
		"variable_names": names,
		"max_views":      maxViews,
	}, &out)
	if err != nil {
		return "", "", err
	}
	return out.Share.ID, out.Passcode, nil
}

// RevealShare decrypts a public share with its passcode. No token required.
func (c *Client) RevealShare(ctx context.Context, shareID, passcode string) (map[string]string, error) {
	var out struct {
		Variables map[string]string `json:"variables"`
	}
	err := c.do(ctx, http.MethodPost, "/api/public/shares/"+shareID+"/reveal", map[string]string{"passcode": passcode}, &out)
	return out.Variables, err
}
