package jellyseerr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
)

const defaultPageSize = 100

// Request is one entry of the Jellyseerr request queue. Status is the
// raw upstream code (1=pending, 2=approved, 3=available, 4=declined).
type Request struct {
	ID        int64     `json:"id"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Type      string    `json:"type"`
	Media     struct {
		TmdbID int64 `json:"tmdbId"`
	} `json:"media"`
	RequestedBy struct {
		DisplayName string `json:"displayName"`
	} `json:"requestedBy"`
}

// PageInfo is the pagination envelope of the request listing.
type PageInfo struct {
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
	Page     int `json:"page"`
}

// RequestsResponse is one page of the request listing.
type RequestsResponse struct {
	PageInfo *PageInfo `json:"pageInfo"`
	Results  []Request `json:"results"`
}

// Client is a typed wrapper over the Jellyseerr REST API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpc: httpc}
}

// GetRequests fetches one page of the request queue.
func (c *Client) GetRequests(ctx context.Context, page, take int) (*RequestsResponse, error) {
	if take <= 0 {
		take = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("take", strconv.Itoa(take))
	params.Set("skip", strconv.Itoa((page-1)*take))

	var payload RequestsResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/request", nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("X-Api-Key", c.apiKey)
			req.URL.RawQuery = params.Encode()

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("jellyseerr request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("jellyseerr request failed: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetAllRequests walks every page of the request queue.
func (c *Client) GetAllRequests(ctx context.Context) ([]Request, error) {
	var all []Request
	for page := 1; ; page++ {
		resp, err := c.GetRequests(ctx, page, defaultPageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch requests page %d: %w", page, err)
		}
		all = append(all, resp.Results...)

		if resp.PageInfo == nil || page >= resp.PageInfo.Pages {
			break
		}
	}
	return all, nil
}
