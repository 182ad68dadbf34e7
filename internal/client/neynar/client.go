package neynar

import (
	"context"
	"fmt"

	client "github.com/tipcast/tipcast-api/internal/client/http"
)

const defaultBaseURL = "https://api.neynar.com"

// feed query defaults: the globally trending filter, one page of 15.
const (
	feedType   = "filter"
	filterType = "global_trending"
	feedLimit  = "15"
)

// Author is the cast author's public profile.
type Author struct {
	Name              string `json:"name,omitempty"`
	DisplayName       string `json:"display_name,omitempty"`
	Username          string `json:"username"`
	PfpURL            string `json:"pfp_url,omitempty"`
	PowerBadge        bool   `json:"power_badge,omitempty"`
	CustodyAddress    string `json:"custody_address,omitempty"`
	VerifiedAddresses struct {
		EthAddresses []string `json:"eth_addresses"`
		SolAddresses []string `json:"sol_addresses"`
	} `json:"verified_addresses"`
}

// Embed is a media attachment on a cast.
type Embed struct {
	URL      string `json:"url"`
	Metadata struct {
		ContentType string `json:"content_type"`
	} `json:"metadata"`
}

// Cast is one feed entry as the upstream API returns it.
type Cast struct {
	Hash      string  `json:"hash"`
	Text      string  `json:"text"`
	Embeds    []Embed `json:"embeds"`
	Timestamp string  `json:"timestamp"`
	Author    Author  `json:"author"`
	Reactions struct {
		LikesCount   int `json:"likes_count"`
		RecastsCount int `json:"recasts_count"`
	} `json:"reactions"`
	Replies struct {
		Count int `json:"count"`
	} `json:"replies"`
}

type feedResponse struct {
	Casts []Cast `json:"casts"`
	Next  struct {
		Cursor string `json:"cursor"`
	} `json:"next"`
}

// Client talks to the Neynar Farcaster API.
type Client struct {
	http *client.Client
}

// NewClient creates a feed client authenticated with apiKey.
func NewClient(apiKey string, options ...client.ClientOption) *Client {
	opts := append([]client.ClientOption{
		client.WithBaseURL(defaultBaseURL),
		client.WithDefaultHeader("x-api-key", apiKey),
	}, options...)
	return &Client{http: client.NewClient(opts...)}
}

// TrendingFeed fetches one page of the globally trending cast feed.
func (c *Client) TrendingFeed(ctx context.Context) ([]Cast, string, error) {
	resp, err := c.http.Get(ctx, "/v2/farcaster/feed",
		client.WithQueryParam("feed_type", feedType),
		client.WithQueryParam("filter_type", filterType),
		client.WithQueryParam("limit", feedLimit),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch feed: %w", err)
	}

	var feed feedResponse
	if err := c.http.DecodeJSON(resp, &feed); err != nil {
		return nil, "", fmt.Errorf("failed to decode feed response: %w", err)
	}
	return feed.Casts, feed.Next.Cursor, nil
}
