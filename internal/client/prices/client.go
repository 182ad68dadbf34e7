package prices

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	client "github.com/tipcast/tipcast-api/internal/client/http"
	"github.com/tipcast/tipcast-api/internal/logger"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.coinbase.com"

type spotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// Quote is an asset/USD spot price.
type Quote struct {
	Base     string
	Currency string
	Amount   float64
}

// Client fetches the ETH/USD spot price and caches the first successful
// result for its whole lifetime. The display price is cosmetic; it never
// needs a periodic refresh. Cache lifecycle: uninitialized until the
// first successful fetch, populated forever after.
type Client struct {
	http *client.Client

	mu     sync.Mutex
	cached *Quote
}

// NewClient creates a price client.
func NewClient(options ...client.ClientOption) *Client {
	opts := append([]client.ClientOption{client.WithBaseURL(defaultBaseURL)}, options...)
	return &Client{http: client.NewClient(opts...)}
}

// EthUSD returns the ETH/USD spot price, fetching it at most once.
func (c *Client) EthUSD(ctx context.Context) (*Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil {
		return c.cached, nil
	}

	resp, err := c.http.Get(ctx, "/v2/prices/ETH-USD/spot")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot price: %w", err)
	}

	var spot spotResponse
	if err := c.http.DecodeJSON(resp, &spot); err != nil {
		return nil, fmt.Errorf("failed to decode spot price: %w", err)
	}
	amount, err := strconv.ParseFloat(spot.Data.Amount, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed spot price %q: %w", spot.Data.Amount, err)
	}

	c.cached = &Quote{
		Base:     spot.Data.Base,
		Currency: spot.Data.Currency,
		Amount:   amount,
	}
	logger.Debug("spot price cached",
		zap.String("pair", spot.Data.Base+"-"+spot.Data.Currency),
		zap.Float64("amount", amount),
	)
	return c.cached, nil
}
