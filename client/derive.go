package client

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	clobAuthMessage = "This message attests that I control the given wallet"
	polygonChainID  = 137
)

// DeriveCredentials obtains L2 API credentials for the wallet behind
// privateKeyHex. It signs the CLOB auth attestation with the wallet key,
// asks the exchange to derive an existing key set, and falls back to
// creating a fresh one when none exists yet.
func (c *Client) DeriveCredentials(ctx context.Context, privateKeyHex string) (*L2Credentials, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	timestamp := time.Now().Unix()
	signature, err := signClobAuth(privateKey, address.Hex(), timestamp)
	if err != nil {
		return nil, fmt.Errorf("sign auth message: %w", err)
	}

	headers := map[string]string{
		"POLY_ADDRESS":   address.Hex(),
		"POLY_SIGNATURE": signature,
		"POLY_TIMESTAMP": strconv.FormatInt(timestamp, 10),
		"POLY_NONCE":     "0",
	}

	creds, err := c.fetchCredentials(ctx, http.MethodGet, "/auth/derive-api-key", headers)
	if err != nil {
		c.logger.Debug("derive-api-key failed, creating new key", "error", err)
		creds, err = c.fetchCredentials(ctx, http.MethodPost, "/auth/api-key", headers)
		if err != nil {
			return nil, fmt.Errorf("create api key: %w", err)
		}
	}
	creds.Address = address.Hex()
	return creds, nil
}

func (c *Client) fetchCredentials(ctx context.Context, method, path string, headers map[string]string) (*L2Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.clobBase+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var payload struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if payload.APIKey == "" || payload.Secret == "" || payload.Passphrase == "" {
		return nil, fmt.Errorf("credential response missing fields")
	}
	return &L2Credentials{
		APIKey:     payload.APIKey,
		APISecret:  payload.Secret,
		Passphrase: payload.Passphrase,
	}, nil
}

// signClobAuth signs the EIP-712 ClobAuth attestation. The domain has no
// verifying contract; Polymarket validates name, version and chain only.
func signClobAuth(privateKey *ecdsa.PrivateKey, address string, timestamp int64) (string, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(polygonChainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     (*math.HexOrDecimal256)(big.NewInt(0)),
			"message":   clobAuthMessage,
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return "", fmt.Errorf("hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return "", fmt.Errorf("hash message: %w", err)
	}

	digest := crypto.Keccak256(append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...))
	signature, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", fmt.Errorf("sign digest: %w", err)
	}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return hexutil.Encode(signature), nil
}
