package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"go.uber.org/zap"
)

// EsploraClient talks to an Esplora REST API (blockstream.info,
// litecoinspace.org or a self-hosted electrs).
type EsploraClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewEsploraClient creates a new Esplora client
func NewEsploraClient(baseURL string, logger *zap.Logger) *EsploraClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EsploraClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// addressInfo is the /address/{address} response
type addressInfo struct {
	ChainStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

// esploraUTXO is one entry of the /address/{address}/utxo response
type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
}

// GetConfirmedBalance returns confirmed funded minus spent output sums in base units.
func (c *EsploraClient) GetConfirmedBalance(ctx context.Context, address string) (int64, error) {
	return common.RetryRead(ctx, func() (int64, error) {
		var info addressInfo
		if err := c.getJSON(ctx, "/address/"+address, &info); err != nil {
			return 0, err
		}
		return info.ChainStats.FundedTxoSum - info.ChainStats.SpentTxoSum, nil
	})
}

// GetUTXOs returns the unspent outputs of address. Locking scripts are not
// part of the Esplora response and are left empty.
func (c *EsploraClient) GetUTXOs(ctx context.Context, address string) ([]model.UTXO, error) {
	return common.RetryRead(ctx, func() ([]model.UTXO, error) {
		var raw []esploraUTXO
		if err := c.getJSON(ctx, "/address/"+address+"/utxo", &raw); err != nil {
			return nil, err
		}
		utxos := make([]model.UTXO, 0, len(raw))
		for _, u := range raw {
			utxos = append(utxos, model.UTXO{
				TxID:        u.TxID,
				Vout:        u.Vout,
				Value:       u.Value,
				Confirmed:   u.Status.Confirmed,
				BlockHeight: u.Status.BlockHeight,
			})
		}
		return utxos, nil
	})
}

// GetTipHeight returns the current best block height.
func (c *EsploraClient) GetTipHeight(ctx context.Context) (int64, error) {
	return common.RetryRead(ctx, func() (int64, error) {
		body, err := c.get(ctx, "/blocks/tip/height")
		if err != nil {
			return 0, err
		}
		height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse tip height: %w", err)
		}
		return height, nil
	})
}

// GetFeeEstimates returns sat/vB estimates keyed by confirmation target.
func (c *EsploraClient) GetFeeEstimates(ctx context.Context) (map[string]float64, error) {
	return common.RetryRead(ctx, func() (map[string]float64, error) {
		estimates := make(map[string]float64)
		if err := c.getJSON(ctx, "/fee-estimates", &estimates); err != nil {
			return nil, err
		}
		return estimates, nil
	})
}

// HasTransaction reports whether the node knows txid, in mempool or in a block.
// /tx/{id}/status answers {"confirmed":false} for txids electrs has never
// seen, so the lookup goes to /tx/{id}, which is 404 for unknown ones.
func (c *EsploraClient) HasTransaction(ctx context.Context, txid string) (bool, error) {
	return common.RetryRead(ctx, func() (bool, error) {
		_, err := c.get(ctx, "/tx/"+txid)
		if err == nil {
			return true, nil
		}
		if model.KindOf(err) == model.KindNotFound {
			return false, nil
		}
		return false, err
	})
}

// Broadcast relays a hex-encoded signed transaction and returns its txid.
// It is never retried here. A transport failure comes back as a network
// error because the node may have accepted the transaction anyway; an
// explicit rejection comes back as a broadcast error.
func (c *EsploraClient) Broadcast(ctx context.Context, rawTx string) (string, error) {
	const op = "esplora broadcast"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx", strings.NewReader(rawTx))
	if err != nil {
		return "", model.Wrap(model.KindBroadcast, op, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", model.Wrap(model.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", model.Wrap(model.KindNetwork, op, err)
	}
	msg := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusOK:
		c.logger.Info("transaction broadcast", zap.String("txid", msg))
		return msg, nil
	case resp.StatusCode >= 500:
		return "", model.Errorf(model.KindNetwork, op, "status %d: %s", resp.StatusCode, msg)
	default:
		return "", model.Errorf(model.KindBroadcast, op, "rejected with status %d: %s", resp.StatusCode, msg)
	}
}

func (c *EsploraClient) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// get performs a GET and classifies failures: transport errors, 429 and 5xx
// are network errors (retryable), 404 is not found, other statuses are
// invalid input.
func (c *EsploraClient) get(ctx context.Context, path string) ([]byte, error) {
	op := "esplora GET " + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, model.Wrap(model.KindInvalidInput, op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("esplora request failed", zap.String("path", path), zap.Error(err))
		return nil, model.Wrap(model.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, model.Wrap(model.KindNetwork, op, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, model.Errorf(model.KindNotFound, op, "not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, model.Errorf(model.KindNetwork, op, "status %d", resp.StatusCode)
	default:
		return nil, model.Errorf(model.KindInvalidInput, op, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
