package jellyfin

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

// User is one entry of the Jellyfin /Users response, reduced to the
// fields the sync pipeline consumes.
type User struct {
	JellyfinID      string
	Username        string
	IsAdministrator bool
	PrimaryImageTag *string
	LastLogin       time.Time
	LastSeen        time.Time
}

// WatchItem is one played item from a user's library view. TmdbID,
// ImdbID and LastPlayedDate are optional upstream; items without a
// LastPlayedDate are skipped by the sync service.
type WatchItem struct {
	ItemID           string
	ItemName         string
	ItemType         string
	TmdbID           *int64
	ImdbID           *string
	Genres           []string
	PlayedPercentage *float64
	PlayCount        int
	LastPlayedDate   *time.Time
	IsPlayed         bool
	RuntimeTicks     *int64
	ProductionYear   *int
}

// Client is a typed wrapper over the Jellyfin REST API.
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

func (c *Client) doGET(ctx context.Context, endpoint string, params url.Values, v any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("X-MediaBrowser-Token", c.apiKey)
			if params != nil {
				req.URL.RawQuery = params.Encode()
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("jellyfin request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("jellyfin request failed: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
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
}

type userResponse struct {
	ID               string `json:"Id"`
	Name             string `json:"Name"`
	PrimaryImageTag  string `json:"PrimaryImageTag"`
	LastLoginDate    string `json:"LastLoginDate"`
	LastActivityDate string `json:"LastActivityDate"`
	Policy           struct {
		IsAdministrator bool `json:"IsAdministrator"`
	} `json:"Policy"`
}

// ListUsers fetches the full user list in one call.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var payload []userResponse
	if err := c.doGET(ctx, c.baseURL+"/Users", nil, &payload); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	users := make([]User, 0, len(payload))
	for _, u := range payload {
		user := User{
			JellyfinID:      u.ID,
			Username:        u.Name,
			IsAdministrator: u.Policy.IsAdministrator,
			LastLogin:       parseJellyfinTime(u.LastLoginDate, now),
			LastSeen:        parseJellyfinTime(u.LastActivityDate, now),
		}
		if u.PrimaryImageTag != "" {
			tag := u.PrimaryImageTag
			user.PrimaryImageTag = &tag
		}
		users = append(users, user)
	}
	return users, nil
}

type itemsResponse struct {
	Items []struct {
		ID             string            `json:"Id"`
		Name           string            `json:"Name"`
		Type           string            `json:"Type"`
		Genres         []string          `json:"Genres"`
		ProviderIDs    map[string]string `json:"ProviderIds"`
		RunTimeTicks   *int64            `json:"RunTimeTicks"`
		ProductionYear *int              `json:"ProductionYear"`
		UserData       struct {
			PlayedPercentage *float64 `json:"PlayedPercentage"`
			PlayCount        int      `json:"PlayCount"`
			LastPlayedDate   string   `json:"LastPlayedDate"`
			Played           bool     `json:"Played"`
		} `json:"UserData"`
	} `json:"Items"`
}

// ListWatchHistory fetches the user's full play history in one call.
func (c *Client) ListWatchHistory(ctx context.Context, jellyfinUserID string) ([]WatchItem, error) {
	params := url.Values{}
	params.Set("SortBy", "DatePlayed")
	params.Set("SortOrder", "Descending")
	params.Set("EnableUserData", "true")
	params.Set("IncludeItemTypes", "Movie,Episode")
	params.Set("Recursive", "true")
	params.Set("Fields", "DateCreated,Path,Genres,MediaStreams,Overview,ProviderIds,UserData")

	endpoint := fmt.Sprintf("%s/Users/%s/Items", c.baseURL, url.PathEscape(jellyfinUserID))

	var payload itemsResponse
	if err := c.doGET(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}

	items := make([]WatchItem, 0, len(payload.Items))
	for _, raw := range payload.Items {
		item := WatchItem{
			ItemID:           raw.ID,
			ItemName:         raw.Name,
			ItemType:         raw.Type,
			Genres:           raw.Genres,
			PlayedPercentage: raw.UserData.PlayedPercentage,
			PlayCount:        raw.UserData.PlayCount,
			IsPlayed:         raw.UserData.Played,
			RuntimeTicks:     raw.RunTimeTicks,
			ProductionYear:   raw.ProductionYear,
		}

		if raw.ProviderIDs != nil {
			if tmdbStr := raw.ProviderIDs["Tmdb"]; tmdbStr != "" {
				if tmdbID, err := strconv.ParseInt(tmdbStr, 10, 64); err == nil {
					item.TmdbID = &tmdbID
				}
			}
			if imdbID := raw.ProviderIDs["Imdb"]; imdbID != "" {
				item.ImdbID = &imdbID
			}
		}

		if t, ok := parseOptionalTime(raw.UserData.LastPlayedDate); ok {
			item.LastPlayedDate = &t
		}

		items = append(items, item)
	}
	return items, nil
}

// Jellyfin timestamps come back in RFC 3339 with a fractional-second
// precision that varies by server version.
func parseOptionalTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.9999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseJellyfinTime(s string, fallback time.Time) time.Time {
	if t, ok := parseOptionalTime(s); ok {
		return t
	}
	return fallback
}
