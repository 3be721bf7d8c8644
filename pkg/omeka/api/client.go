// Package api is a typed HTTP client for the Omeka S REST API.
package api

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
)

// PageSize is the per_page value used when listing resources
const PageSize = 100

// TotalResultsHeader carries the match count of a search
const TotalResultsHeader = "Omeka-S-Total-Results"

const maxErrorBody = 4096

var (
	_ omeka.API       = (*Client)(nil)
	_ omeka.KeySetter = (*Client)(nil)
)

// Client implements omeka.API over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger

	mu    sync.RWMutex
	creds omeka.Credentials
}

// New creates a client for the installation served at baseURL
func New(baseURL string, creds omeka.Credentials) *Client {
	return NewWithHTTPClient(http.DefaultClient, baseURL, creds)
}

// NewWithHTTPClient creates a client using a custom http.Client
func NewWithHTTPClient(httpClient *http.Client, baseURL string, creds omeka.Credentials) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logging.GetLogger("omeka.api"),
		creds:      creds,
	}
}

// SetCredentials replaces the API key used for subsequent requests
func (client *Client) SetCredentials(creds omeka.Credentials) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.creds = creds
}

// Credentials returns the API key in use
func (client *Client) Credentials() omeka.Credentials {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.creds
}

// Create posts payload to the resource collection and returns the
// created object
func (client *Client) Create(ctx context.Context, resource string, payload interface{}) (*omeka.Resource, error) {
	creds := client.Credentials()
	if creds.Empty() {
		return nil, errors.Newf(errors.ErrAuthFailed, "create %s: no API key configured", resource)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrAPIRequest, "create %s: encode payload", resource)
	}

	response, err := client.do(ctx, http.MethodPost, client.endpoint(resource, nil), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrAPIRequest, "create %s", resource)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, errors.Newf(errors.ErrAPIRequest, "create %s: HTTP %d: %s",
			resource, response.StatusCode, errorBody(response.Body))
	}

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrAPIRequest, "create %s: read response", resource)
	}
	result, err := decodeResource(raw)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrAPIRequest, "create %s: decode response", resource)
	}

	client.logger.Debug().Str("resource", resource).Int("id", result.ID).Msg("Created object")
	return result, nil
}

// Search lists every object of resource matching query, following pages
// until a short page is returned, the Omeka-S-Total-Results count is
// reached, or a page repeats the previous one
func (client *Client) Search(ctx context.Context, resource string, query omeka.Query) ([]omeka.Resource, error) {
	var all []omeka.Resource
	var previous []omeka.Resource
	for page := 1; ; page++ {
		batch, total, err := client.page(ctx, resource, query, page, PageSize)
		if err != nil {
			return nil, err
		}
		if page > 1 && len(batch) > 0 && len(previous) > 0 && batch[0].ID == previous[0].ID {
			client.logger.Warn().
				Str("resource", resource).
				Int("page", page).
				Msg("Server ignored the page parameter; stopping pagination")
			break
		}
		all = append(all, batch...)
		if len(batch) < PageSize || (total >= 0 && len(all) >= total) {
			break
		}
		previous = batch
	}
	return all, nil
}

// SearchOne returns the first object matching query, or nil
func (client *Client) SearchOne(ctx context.Context, resource string, query omeka.Query) (*omeka.Resource, error) {
	batch, _, err := client.page(ctx, resource, query, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}
	return &batch[0], nil
}

// page fetches one page. total is the Omeka-S-Total-Results header, or -1
// when the server does not send it.
func (client *Client) page(ctx context.Context, resource string, query omeka.Query, page, perPage int) ([]omeka.Resource, int, error) {
	params := url.Values{}
	for key, value := range query {
		params.Set(key, value)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	response, err := client.do(ctx, http.MethodGet, client.endpoint(resource, params), nil)
	if err != nil {
		return nil, 0, errors.Wrapf(err, errors.ErrAPIRequest, "search %s", resource)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, 0, errors.Newf(errors.ErrAPIRequest, "search %s: HTTP %d: %s",
			resource, response.StatusCode, errorBody(response.Body))
	}

	total := -1
	if header := response.Header.Get(TotalResultsHeader); header != "" {
		if n, err := strconv.Atoi(header); err == nil && n >= 0 {
			total = n
		}
	}

	var items []stdjson.RawMessage
	if err := json.NewDecoder(response.Body).Decode(&items); err != nil {
		return nil, 0, errors.Wrapf(err, errors.ErrAPIRequest, "search %s: decode response", resource)
	}

	results := make([]omeka.Resource, 0, len(items))
	for _, item := range items {
		decoded, err := decodeResource(item)
		if err != nil {
			return nil, 0, errors.Wrapf(err, errors.ErrAPIRequest, "search %s: decode item", resource)
		}
		results = append(results, *decoded)
	}

	client.logger.Trace().
		Str("resource", resource).
		Int("page", page).
		Int("count", len(results)).
		Msg("Fetched page")
	return results, total, nil
}

func (client *Client) endpoint(resource string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if creds := client.Credentials(); !creds.Empty() {
		params.Set("key_identity", creds.KeyIdentity)
		params.Set("key_credential", creds.KeyCredential)
	}
	endpoint := client.baseURL + "/api/" + resource
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	return endpoint
}

func (client *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return client.httpClient.Do(request)
}

func decodeResource(raw []byte) (*omeka.Resource, error) {
	var result omeka.Resource
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	result.Raw = append(stdjson.RawMessage(nil), raw...)
	return &result, nil
}

// errorBody extracts a readable message from an error response. Omeka S
// reports failures as {"errors": {...}}.
func errorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return fmt.Sprintf("(reading body: %v)", err)
	}
	var envelope struct {
		Errors stdjson.RawMessage `json:"errors"`
	}
	if json.Unmarshal(data, &envelope) == nil && len(envelope.Errors) > 0 {
		return string(envelope.Errors)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "(empty body)"
	}
	return text
}
