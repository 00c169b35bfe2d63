package wechatpay

import (
	"encoding/json"
	"fmt"
	"net/http"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/ports/adapter"
)

// Callback signature headers set by the gateway.
const (
	headerTimestamp = "Wechatpay-Timestamp"
	headerNonce     = "Wechatpay-Nonce"
	headerSignature = "Wechatpay-Signature"
	headerSerial    = "Wechatpay-Serial"
)

// notifyEnvelope is the outer callback body; the interesting part is the
// AEAD-encrypted resource.
type notifyEnvelope struct {
	ID           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Resource     struct {
		Algorithm      string `json:"algorithm"`
		Ciphertext     string `json:"ciphertext"`
		Nonce          string `json:"nonce"`
		AssociatedData string `json:"associated_data"`
	} `json:"resource"`
}

// VerifyCallback checks the gateway signature over the raw callback body.
// Every required header must be present; the serial must match the platform
// key we hold.
func (c *Client) VerifyCallback(headers http.Header, body []byte) error {
	if c.platformPub == nil {
		return fmt.Errorf("%w: no platform public key configured", domain.ErrCallbackVerification)
	}
	timestamp := headers.Get(headerTimestamp)
	nonce := headers.Get(headerNonce)
	signature := headers.Get(headerSignature)
	serial := headers.Get(headerSerial)
	if timestamp == "" || nonce == "" || signature == "" || serial == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrCallbackVerification)
	}
	if err := verifyMessage(c.platformPub, callbackMessage(timestamp, nonce, body), signature); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCallbackVerification, err)
	}
	return nil
}

// DecryptCallback opens the encrypted resource of a verified callback body
// and returns the payment notice. Fails closed on authentication failure.
func (c *Client) DecryptCallback(body []byte) (*adapter.PaymentNotice, error) {
	var env notifyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode callback body: %w", err)
	}
	if env.Resource.Ciphertext == "" {
		return nil, fmt.Errorf("%w: callback carries no resource", domain.ErrCallbackVerification)
	}
	plain, err := decryptResource(c.apiV3Key, env.Resource.Nonce, env.Resource.AssociatedData, env.Resource.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCallbackVerification, err)
	}
	var notice adapter.PaymentNotice
	if err := json.Unmarshal(plain, &notice); err != nil {
		return nil, fmt.Errorf("decode payment notice: %w", err)
	}
	if notice.OutTradeNo == "" {
		return nil, fmt.Errorf("%w: notice carries no order number", domain.ErrCallbackVerification)
	}
	return &notice, nil
}
