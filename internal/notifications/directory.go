package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Contact is what the notifier needs to address a user.
type Contact struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (c Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.UserID
}

// Directory resolves user ids to contacts.
type Directory interface {
	Lookup(ctx context.Context, userID string) (Contact, error)
}

// HTTPDirectory asks the user service for contact details.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *HTTPDirectory) Lookup(ctx context.Context, userID string) (Contact, error) {
	endpoint := d.baseURL + "/api/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Contact{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Contact{}, fmt.Errorf("user lookup %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Contact{}, fmt.Errorf("user lookup %s: status %d", userID, resp.StatusCode)
	}

	var body struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Contact{}, fmt.Errorf("decode user %s: %w", userID, err)
	}

	c := Contact{UserID: userID, Email: body.Email, Name: body.Name}
	if c.Name == "" {
		c.Name = body.Username
	}
	return c, nil
}

// StaticDirectory knows nobody's email; it is used when no user service is configured.
type StaticDirectory struct{}

func (StaticDirectory) Lookup(_ context.Context, userID string) (Contact, error) {
	return Contact{UserID: userID}, nil
}
