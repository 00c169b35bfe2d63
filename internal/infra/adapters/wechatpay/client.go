package wechatpay

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"course-ambassador-platform/internal/config"
	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/ports/adapter"
	"course-ambassador-platform/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*Client)(nil)

const defaultBaseURL = "https://api.mch.weixin.qq.com"

// Client speaks the gateway's v3 JSAPI protocol: signed requests out,
// verified and decrypted callbacks in. It is built from configuration and
// injected; the signing material never lives in package state.
type Client struct {
	appID     string
	mchID     string
	serialNo  string
	notifyURL string
	baseURL   string

	priv        *rsa.PrivateKey
	platformPub *rsa.PublicKey
	apiV3Key    []byte

	client *http.Client
	now    func() time.Time
}

func NewClient(cfg *config.WechatPayConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	privPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	priv, err := parsePrivateKey(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	var platformPub *rsa.PublicKey
	if cfg.PlatformPublicKeyPath != "" {
		pubPEM, err := os.ReadFile(cfg.PlatformPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read platform public key: %w", err)
		}
		platformPub, err = parsePublicKey(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("parse platform public key: %w", err)
		}
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		appID:       cfg.AppID,
		mchID:       cfg.MchID,
		serialNo:    cfg.SerialNo,
		notifyURL:   cfg.NotifyURL,
		baseURL:     base,
		priv:        priv,
		platformPub: platformPub,
		apiV3Key:    []byte(cfg.APIv3Key),
		client:      &http.Client{Timeout: 15 * time.Second},
		now:         time.Now,
	}, nil
}

func (c *Client) Name() string { return "wechatpay" }

// post signs and sends one gateway request, separating transport failures
// from gateway rejections and returning the raw response body.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	nonce := uuid.NewString()
	sig, err := signMessage(c.priv, requestMessage(http.MethodPost, path, timestamp, nonce, body))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authorizationHeader(c.mchID, nonce, sig, timestamp, c.serialNo))

	start := c.now()
	resp, err := c.client.Do(req)
	metrics.ObserveGatewayLatency(path, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncGatewayCall(path, "unreachable")
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncGatewayCall(path, "unreachable")
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IncGatewayCall(path, "rejected")
		return nil, fmt.Errorf("%w: http %d: %s", domain.ErrGatewayRejected, resp.StatusCode, raw)
	}
	metrics.IncGatewayCall(path, "ok")
	return raw, nil
}

// CreatePayment opens a JSAPI payment intent and returns the prepay token.
func (c *Client) CreatePayment(ctx context.Context, orderNo, payerID, description string, amount int64) (string, error) {
	if amount <= 0 {
		return "", domain.ErrInvalidArgument
	}
	payload := map[string]any{
		"appid":        c.appID,
		"mchid":        c.mchID,
		"description":  description,
		"out_trade_no": orderNo,
		"notify_url":   c.notifyURL,
		"amount": map[string]any{
			"total":    amount,
			"currency": "CNY",
		},
		"payer": map[string]any{
			"openid": payerID,
		},
	}
	raw, err := c.post(ctx, "/v3/pay/transactions/jsapi", payload)
	if err != nil {
		return "", err
	}
	var out struct {
		PrepayID string `json:"prepay_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.PrepayID == "" {
		return "", fmt.Errorf("%w: response carries no prepay token", domain.ErrGatewayRejected)
	}
	return out.PrepayID, nil
}

// ClientParams derives the wallet-UI invocation parameters for a prepay token.
func (c *Client) ClientParams(prepayID string) (*adapter.InvokeParams, error) {
	if prepayID == "" {
		return nil, domain.ErrInvalidArgument
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	nonce := uuid.NewString()
	pkg := "prepay_id=" + prepayID
	sig, err := signMessage(c.priv, invokeMessage(c.appID, timestamp, nonce, pkg))
	if err != nil {
		return nil, err
	}
	return &adapter.InvokeParams{
		TimeStamp: timestamp,
		NonceStr:  nonce,
		Package:   pkg,
		SignType:  "RSA",
		PaySign:   sig,
	}, nil
}

// Refund requests a refund; the reference derives from the order number and
// current time. An accepted refund is "processing", not settled.
func (c *Client) Refund(ctx context.Context, orderNo string, refundAmount, totalAmount int64, reason string) (*adapter.RefundResult, error) {
	if refundAmount <= 0 || refundAmount > totalAmount {
		return nil, domain.ErrInvalidArgument
	}
	refundNo := fmt.Sprintf("%sR%d", orderNo, c.now().Unix())
	payload := map[string]any{
		"out_trade_no":  orderNo,
		"out_refund_no": refundNo,
		"reason":        reason,
		"notify_url":    c.notifyURL,
		"amount": map[string]any{
			"refund":   refundAmount,
			"total":    totalAmount,
			"currency": "CNY",
		},
	}
	raw, err := c.post(ctx, "/v3/refund/domestic/refunds", payload)
	if err != nil {
		return nil, err
	}
	var out struct {
		RefundID string `json:"refund_id"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Status == "" {
		out.Status = "PROCESSING"
	}
	return &adapter.RefundResult{RefundNo: refundNo, Status: out.Status}, nil
}
