package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// L2Credentials are user-level API credentials for authenticated CLOB
// calls. They are a capability: keep them out of logs and error text.
type L2Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Address    string
}

// ErrNoCredentials means no L2 credentials were supplied anywhere: not on
// the call, not on the client, not in the environment.
var ErrNoCredentials = errors.New("no L2 credentials: set POLY_API_KEY, POLY_API_SECRET, POLY_API_PASSPHRASE and POLY_ADDRESS, or pass credentials explicitly")

// ErrIncompleteCredentials means some but not all credential fields were
// set. This is a configuration error; retrying will not help.
var ErrIncompleteCredentials = errors.New("incomplete L2 credentials: POLY_API_KEY, POLY_API_SECRET, POLY_API_PASSPHRASE and POLY_ADDRESS are all required")

func (c L2Credentials) complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Passphrase != "" && c.Address != ""
}

func (c L2Credentials) empty() bool {
	return c.APIKey == "" && c.APISecret == "" && c.Passphrase == "" && c.Address == ""
}

// CredentialsFromEnv reads POLY_API_KEY, POLY_API_SECRET,
// POLY_API_PASSPHRASE and POLY_ADDRESS. It returns nil when none are set;
// partially-set credentials are returned as-is and fail later with
// ErrIncompleteCredentials.
func CredentialsFromEnv() *L2Credentials {
	creds := L2Credentials{
		APIKey:     os.Getenv("POLY_API_KEY"),
		APISecret:  os.Getenv("POLY_API_SECRET"),
		Passphrase: os.Getenv("POLY_API_PASSPHRASE"),
		Address:    os.Getenv("POLY_ADDRESS"),
	}
	if creds.empty() {
		return nil
	}
	return &creds
}

// SignRequest computes the L2 request signature: HMAC-SHA256 over
// timestamp+METHOD+path+body, keyed by the base64url-decoded secret and
// encoded back to base64url. Single quotes in the body are normalized to
// double quotes before signing. Identical inputs always produce identical
// signatures.
func SignRequest(secret string, timestamp int64, method, path, body string) string {
	message := strconv.FormatInt(timestamp, 10) + strings.ToUpper(method) + path
	if body != "" {
		message += strings.ReplaceAll(body, "'", `"`)
	}
	mac := hmac.New(sha256.New, decodeSecret(secret))
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// decodeSecret tries base64url, then standard base64, then the raw bytes.
// Upstream secrets are base64url but not always padded consistently.
func decodeSecret(secret string) []byte {
	if key, err := base64.URLEncoding.DecodeString(secret); err == nil {
		return key
	}
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil {
		return key
	}
	return []byte(secret)
}

// l2Headers builds the five-header set for authenticated CLOB endpoints.
// Credential resolution order: per-call override, client credentials,
// environment.
func (c *Client) l2Headers(method, path, body string, override *L2Credentials) (map[string]string, error) {
	creds := override
	if creds == nil {
		creds = c.creds
	}
	if creds == nil {
		creds = CredentialsFromEnv()
	}
	if creds == nil {
		return nil, ErrNoCredentials
	}
	if !creds.complete() {
		return nil, ErrIncompleteCredentials
	}

	timestamp := time.Now().Unix()
	return map[string]string{
		"POLY_ADDRESS":    creds.Address,
		"POLY_SIGNATURE":  SignRequest(creds.APISecret, timestamp, method, path, body),
		"POLY_TIMESTAMP":  strconv.FormatInt(timestamp, 10),
		"POLY_API_KEY":    creds.APIKey,
		"POLY_PASSPHRASE": creds.Passphrase,
	}, nil
}
