package adapter

import (
	"context"
	"net/http"
)

// InvokeParams are the client-side parameters for bringing up the wallet UI
// against a prepay token.
type InvokeParams struct {
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// PaymentNotice is the decrypted payload of an asynchronous payment callback.
type PaymentNotice struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	SuccessTime   string `json:"success_time"`
	Amount        struct {
		Total      int64  `json:"total"`
		PayerTotal int64  `json:"payer_total"`
		Currency   string `json:"currency"`
	} `json:"amount"`
}

// RefundResult reports an accepted refund request. Status is "processing";
// settlement arrives on a separate callback path out of scope here.
type RefundResult struct {
	RefundNo string
	Status   string
}

// PaymentGateway speaks the external wallet gateway's signed JSON protocol.
// Implementations are constructed from configuration and injected; there is
// no module-level client handle.
type PaymentGateway interface {
	Name() string

	// CreatePayment opens a payment intent and returns the prepay token.
	// A non-2xx response or a missing token is a hard failure.
	CreatePayment(ctx context.Context, orderNo, payerID, description string, amount int64) (string, error)

	// ClientParams derives the signed parameters the buyer's client needs
	// to invoke the wallet UI for a prepay token.
	ClientParams(prepayID string) (*InvokeParams, error)

	// VerifyCallback checks the gateway signature headers over the raw
	// body; any missing header or signature mismatch rejects the callback.
	VerifyCallback(headers http.Header, body []byte) error

	// DecryptCallback opens the AEAD-encrypted resource of a verified
	// callback body, failing closed on authentication failure.
	DecryptCallback(body []byte) (*PaymentNotice, error)

	// Refund requests a refund; the reference is derived from the order
	// number and current time so retries stay distinguishable.
	Refund(ctx context.Context, orderNo string, refundAmount, totalAmount int64, reason string) (*RefundResult, error)
}
