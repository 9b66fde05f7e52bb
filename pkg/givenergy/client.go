package givenergy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/helioscontrol/helioscontrol/pkg/common"
	"github.com/helioscontrol/helioscontrol/pkg/log"
)

// DefaultBaseURL is the production GivEnergy cloud API.
const DefaultBaseURL = "https://api.givenergy.cloud/v1"

// Provider builds Clients against a configured API base. The base is only
// overridden in tests and local development.
type Provider struct {
	baseURL *string
}

// NewProvider returns a Provider pinned to the given base URL.
func NewProvider(baseURL string) *Provider {
	return &Provider{baseURL: &baseURL}
}

// Configured returns a Provider configured via lflag.
func Configured() *Provider {
	p := &Provider{
		baseURL: lflag.String("givenergy-api-base", DefaultBaseURL, "base URL for the GivEnergy cloud API"),
	}
	return p
}

// Client returns a Client for the given API key.
func (p *Provider) Client(apiKey string) *Client {
	return NewClient(*p.baseURL, apiKey)
}

// Client is a GivEnergy cloud API client bound to a single API key.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient returns a Client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client:  common.HTTPClient(time.Minute),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *Client) newGetRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	u.RawQuery = params.Encode()
	return http.NewRequestWithContext(ctx, "GET", u.String(), nil)
}

func (c *Client) newPostJSONRequest(ctx context.Context, endpoint string, data interface{}) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// envelope is the standard GivEnergy response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// doRequest executes the request and unmarshals the response envelope's
// data into dest. It returns the raw envelope so callers can follow
// pagination links.
func (c *Client) doRequest(req *http.Request, dest interface{}) (*envelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		// best effort, the body might not be json
		_ = json.NewDecoder(resp.Body).Decode(&body)
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if dest != nil {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return &env, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := c.newGetRequest(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	log.Ctx(ctx).DebugContext(ctx, "givenergy request", "endpoint", endpoint)
	_, err = c.doRequest(req, dest)
	return err
}

// pager walks a paginated collection endpoint by following links.next.
type pager struct {
	c    *Client
	next string
	done bool
}

func (c *Client) newPager(endpoint string) (*pager, error) {
	u, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	return &pager{c: c, next: u}, nil
}

// NextPage fetches the next page into dest and reports whether a page was
// fetched. Pagination stops when there is no next link or when the link
// points outside our API base, which we treat as the vendor handing us a
// URL we never asked for.
func (p *pager) NextPage(ctx context.Context, dest interface{}) (bool, error) {
	if p.done {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.next, nil)
	if err != nil {
		return false, err
	}
	env, err := p.c.doRequest(req, dest)
	if err != nil {
		return false, err
	}

	if env.Links.Next == "" || !strings.HasPrefix(env.Links.Next, p.c.baseURL) {
		p.done = true
	} else {
		p.next = env.Links.Next
	}
	return true, nil
}
