package common

import (
	"encoding/base64"
	"fmt"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// PaymentURI builds the wallet-app URI for a deposit. Token deposits use the
// plain host-chain address since the amount is denominated in the token.
func PaymentURI(asset model.Asset, address string, amount decimal.Decimal) string {
	switch asset {
	case model.AssetBTC:
		return fmt.Sprintf("bitcoin:%s?amount=%s", address, amount.String())
	case model.AssetLTC:
		return fmt.Sprintf("litecoin:%s?amount=%s", address, amount.String())
	case model.AssetETH:
		return fmt.Sprintf("ethereum:%s?value=%s", address, amount.Shift(WeiDecimals).Truncate(0).String())
	case model.AssetUSDT, model.AssetUSDC:
		return "ethereum:" + address
	case model.AssetSOL:
		return fmt.Sprintf("solana:%s?amount=%s", address, amount.String())
	default:
		return address
	}
}

// QRCodeBase64 renders content as a 256px PNG QR code in base64
func QRCodeBase64(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
