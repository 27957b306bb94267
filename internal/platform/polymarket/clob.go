package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"updownbot/internal/crypto"
	"updownbot/internal/domain"

	"github.com/shopspring/decimal"
)

// zeroAddress is the open taker used for public limit orders.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// micro converts dollar/share decimals to the 6-decimal fixed point the
// exchange contracts use.
var micro = decimal.NewFromInt(1_000_000)

// ClobClient is the authenticated REST client for the CLOB API: top-of-book
// quotes, order placement, and the API-key derivation flow.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	creds      *crypto.APICreds

	// funder is the address holding collateral: the proxy wallet for
	// signature types 1 and 2, the EOA itself for type 0.
	funder        string
	signatureType int

	now func() time.Time
}

// NewClobClient creates a CLOB client. signer and creds may be nil in
// simulation mode, where only GetTopOfBook is used.
func NewClobClient(baseURL string, signer *crypto.Signer, creds *crypto.APICreds, funder string, signatureType int) *ClobClient {
	c := &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:        signer,
		creds:         creds,
		funder:        funder,
		signatureType: signatureType,
		now:           time.Now,
	}
	if c.funder == "" && signer != nil {
		c.funder = signer.Address().Hex()
	}
	return c
}

// GetTopOfBook returns the best bid and ask for a token. An empty book side
// comes back as a nil pointer, not an error.
func (c *ClobClient) GetTopOfBook(ctx context.Context, tokenID string) (domain.TokenPrice, error) {
	path := "/book?token_id=" + tokenID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.TokenPrice{}, fmt.Errorf("polymarket/clob: create book request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TokenPrice{}, fmt.Errorf("polymarket/clob: book request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TokenPrice{}, fmt.Errorf("polymarket/clob: read book response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return domain.TokenPrice{}, fmt.Errorf("polymarket/clob: book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.TokenPrice{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	return book.ToDomainPrice(), nil
}

// PlaceLimitOrder signs and submits a GTC limit order, returning the
// exchange order id.
func (c *ClobClient) PlaceLimitOrder(ctx context.Context, req domain.LimitOrderRequest) (string, error) {
	if c.signer == nil || c.creds == nil {
		return "", fmt.Errorf("polymarket/clob: %w: client not authenticated", domain.ErrUnauthorized)
	}
	if req.Price.LessThanOrEqual(decimal.Zero) || req.Size.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("polymarket/clob: %w: price=%s size=%s", domain.ErrInvalidOrder, req.Price, req.Size)
	}

	shares := req.Size.Mul(micro).Round(0)
	dollars := req.Price.Mul(req.Size).Mul(micro).Round(0)

	// Maker gives, taker receives: a BUY offers dollars for shares,
	// a SELL the reverse.
	makerAmt, takerAmt := dollars, shares
	side := 0
	if req.Side == domain.OrderSideSell {
		makerAmt, takerAmt = shares, dollars
		side = 1
	}

	payload := crypto.OrderPayload{
		Salt:          strconv.FormatInt(c.now().UnixNano(), 10),
		Maker:         c.funder,
		Signer:        c.signer.Address().Hex(),
		Taker:         zeroAddress,
		TokenID:       req.TokenID,
		MakerAmount:   makerAmt.String(),
		TakerAmount:   takerAmt.String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: c.signatureType,
	}

	sig, err := c.signer.SignOrder(payload)
	if err != nil {
		return "", fmt.Errorf("polymarket/clob: %w: %v", domain.ErrSigningFailed, err)
	}

	body := map[string]any{
		"order": map[string]any{
			"salt":          payload.Salt,
			"maker":         payload.Maker,
			"signer":        payload.Signer,
			"taker":         payload.Taker,
			"tokenId":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"expiration":    payload.Expiration,
			"nonce":         payload.Nonce,
			"feeRateBps":    payload.FeeRateBps,
			"side":          string(req.Side),
			"signatureType": payload.SignatureType,
			"signature":     sig,
		},
		"owner":     c.creds.Key,
		"orderType": "GTC",
	}

	respBody, err := c.doAuthenticated(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return "", fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("polymarket/clob: order rejected: %s", result.ErrorMsg)
	}
	return result.OrderID, nil
}

// CancelOrder cancels one resting order by exchange id.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	respBody, err := c.doAuthenticated(ctx, http.MethodDelete, "/order", map[string]any{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}

	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: cancel failed: %s", result.ErrorMsg)
	}
	return nil
}

// DeriveAPIKey runs the L1 auth flow: it signs a ClobAuth message and trades
// it for HMAC credentials, which authenticate all later requests.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	if c.signer == nil {
		return fmt.Errorf("polymarket/clob: %w: no signer configured", domain.ErrUnauthorized)
	}

	timestamp := c.now().Unix()
	const nonce = int64(0)

	sig, err := c.signer.SignAuth(timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: %w: %v", domain.ErrSigningFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return fmt.Errorf("polymarket/clob: derive api key: %w", err)
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.creds = &crypto.APICreds{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}
	return nil
}

func (c *ClobClient) doAuthenticated(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.creds != nil && c.signer != nil {
		for k, v := range c.creds.L2Headers(c.signer.Address().Hex(), method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes onto domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}
