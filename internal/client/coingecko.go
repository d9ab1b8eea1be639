package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

const (
	coingeckoAPI = "https://api.coingecko.com/api/v3"
)

// CoinGeckoClient client for CoinGecko API
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko client. An empty baseURL uses
// the public API.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = coingeckoAPI
	}
	return &CoinGeckoClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetUSDPrices gets USD prices for CoinGecko coin ids, e.g. "bitcoin".
// Ids missing from the response are missing from the result.
func (c *CoinGeckoClient) GetUSDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	return common.RetryRead(ctx, func() (map[string]decimal.Decimal, error) {
		return c.getUSDPrices(ctx, ids)
	})
}

func (c *CoinGeckoClient) getUSDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	const op = "coingecko price"

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	reqURL := fmt.Sprintf("%s/simple/price?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, model.Wrap(model.KindInvalidInput, op, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, model.Wrap(model.KindNetwork, op, fmt.Errorf("failed to get rate: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, model.Errorf(model.KindNetwork, op, "failed to get rate: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.Errorf(model.KindInvalidInput, op, "failed to get rate: status %d", resp.StatusCode)
	}

	// {"bitcoin":{"usd":67890.12}, ...}; json.Number keeps the exact digits
	var priceResp map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return nil, fmt.Errorf("failed to decode rate: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(priceResp))
	for id, quotes := range priceResp {
		raw, ok := quotes["usd"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s price %q: %w", id, raw, err)
		}
		prices[id] = price
	}
	return prices, nil
}
