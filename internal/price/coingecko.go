package price

import (
	"context"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

// coinGeckoIDs maps assets to CoinGecko coin ids.
var coinGeckoIDs = map[model.Asset]string{
	model.AssetBTC:  "bitcoin",
	model.AssetLTC:  "litecoin",
	model.AssetETH:  "ethereum",
	model.AssetSOL:  "solana",
	model.AssetUSDT: "tether",
	model.AssetUSDC: "usd-coin",
}

// CoinGeckoAPI is the client call the source needs.
// *client.CoinGeckoClient satisfies it.
type CoinGeckoAPI interface {
	GetUSDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// CoinGeckoSource serves live prices from CoinGecko.
type CoinGeckoSource struct {
	api CoinGeckoAPI
}

// NewCoinGeckoSource wraps a CoinGecko client.
func NewCoinGeckoSource(api CoinGeckoAPI) *CoinGeckoSource {
	return &CoinGeckoSource{api: api}
}

// USDPrices returns prices for the assets CoinGecko quoted.
func (s *CoinGeckoSource) USDPrices(ctx context.Context, assets []model.Asset) (map[model.Asset]decimal.Decimal, error) {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		if id, ok := coinGeckoIDs[a]; ok {
			ids = append(ids, id)
		}
	}
	byID, err := s.api.GetUSDPrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Asset]decimal.Decimal, len(byID))
	for _, a := range assets {
		if p, ok := byID[coinGeckoIDs[a]]; ok {
			out[a] = p
		}
	}
	return out, nil
}
