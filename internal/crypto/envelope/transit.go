package envelope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/meridianbank/corebank/internal/config"
)

// ErrTransitUnavailable indicates the key-management service could not be
// reached or returned an unusable response. Callers degrade to the local
// RSA wrap; this error never propagates past the envelope service.
var ErrTransitUnavailable = errors.New("key-management transit service unavailable")

// KeyWrapper is the capability interface for external key wrapping. The core
// never branches on "is it configured" beyond the Enabled check.
type KeyWrapper interface {
	Wrap(ctx context.Context, key []byte) (string, error)
	Unwrap(ctx context.Context, token string) ([]byte, error)
	Enabled() bool
}

// NoopWrapper is the disabled implementation selected when no transit
// service is configured
type NoopWrapper struct{}

func (NoopWrapper) Wrap(context.Context, []byte) (string, error)   { return "", ErrTransitUnavailable }
func (NoopWrapper) Unwrap(context.Context, string) ([]byte, error) { return nil, ErrTransitUnavailable }
func (NoopWrapper) Enabled() bool                                  { return false }

// TransitClient talks to a vault-style transit endpoint over HTTP:
// POST {addr}/v1/transit/encrypt/{key} and POST {addr}/v1/transit/decrypt/{key}.
type TransitClient struct {
	httpClient *http.Client
	address    string
	token      string
	keyName    string
	logger     *slog.Logger
}

// NewTransitClient builds a transit client from configuration. Returns a
// NoopWrapper-equivalent nil when transit is not configured; callers should
// use NewKeyWrapper instead for that selection.
func NewTransitClient(cfg *config.CryptoConfig, logger *slog.Logger) *TransitClient {
	return &TransitClient{
		httpClient: &http.Client{Timeout: cfg.TransitTimeout},
		address:    cfg.TransitAddress,
		token:      cfg.TransitToken,
		keyName:    cfg.TransitKeyName,
		logger:     logger,
	}
}

// NewKeyWrapper selects the transit implementation at startup: a real
// network-backed client when an address is configured, a no-op otherwise.
func NewKeyWrapper(cfg *config.CryptoConfig, logger *slog.Logger) KeyWrapper {
	if !cfg.TransitEnabled() {
		return NoopWrapper{}
	}
	return NewTransitClient(cfg, logger)
}

func (c *TransitClient) Enabled() bool { return true }

// Wrap asks the transit service to encrypt the content key, returning an
// opaque token only the service can reverse
func (c *TransitClient) Wrap(ctx context.Context, key []byte) (string, error) {
	reqBody := map[string]string{"plaintext": base64.StdEncoding.EncodeToString(key)}

	var respBody struct {
		Data struct {
			Ciphertext string `json:"ciphertext"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/v1/transit/encrypt/%s", c.address, c.keyName)
	if err := c.post(ctx, url, reqBody, &respBody); err != nil {
		return "", err
	}
	if respBody.Data.Ciphertext == "" {
		return "", fmt.Errorf("%w: empty wrap token", ErrTransitUnavailable)
	}

	return respBody.Data.Ciphertext, nil
}

// Unwrap reverses Wrap, recovering the content key from the opaque token
func (c *TransitClient) Unwrap(ctx context.Context, token string) ([]byte, error) {
	reqBody := map[string]string{"ciphertext": token}

	var respBody struct {
		Data struct {
			Plaintext string `json:"plaintext"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/v1/transit/decrypt/%s", c.address, c.keyName)
	if err := c.post(ctx, url, reqBody, &respBody); err != nil {
		return nil, err
	}

	key, err := base64.StdEncoding.DecodeString(respBody.Data.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed unwrap response", ErrTransitUnavailable)
	}

	return key, nil
}

func (c *TransitClient) post(ctx context.Context, url string, reqBody any, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal transit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build transit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Vault-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransitUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrTransitUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("%w: malformed response body", ErrTransitUnavailable)
	}

	return nil
}
