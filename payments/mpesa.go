// Package payments wraps the Safaricom Daraja API used to collect
// tournament entry fees through STK push.
package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	oauthPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	// Daraja timestamps are local Nairobi time in this layout.
	timestampLayout = "20060102150405"
)

type DarajaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
}

// DarajaClient talks to the Daraja REST API. OAuth tokens are cached until
// shortly before expiry.
type DarajaClient struct {
	cfg        DarajaConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewDarajaClient(cfg DarajaConfig) *DarajaClient {
	return &DarajaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var phoneDigits = regexp.MustCompile(`^\d+$`)

// NormalizePhone converts Kenyan phone number spellings to the 254XXXXXXXXX
// form Daraja expects.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		phone = "254" + phone[1:]
	}
	if !strings.HasPrefix(phone, "254") || len(phone) != 12 || !phoneDigits.MatchString(phone) {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return phone, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+oauthPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build oauth request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("daraja oauth request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daraja oauth request returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode oauth response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("daraja oauth response contained no access token")
	}

	c.token = tr.AccessToken
	// Tokens last an hour; refresh a minute early.
	c.tokenExpiry = time.Now().Add(59 * time.Minute)
	return c.token, nil
}

type STKPushInput struct {
	PhoneNumber      string
	Amount           int
	AccountReference string
	TransactionDesc  string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush asks Daraja to pop a payment prompt on the customer's phone. The
// request password is base64(shortcode + passkey + timestamp).
func (c *DarajaClient) STKPush(ctx context.Context, input STKPushInput) (*STKPushResponse, error) {
	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("stk push amount must be positive, got %d", input.Amount)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            input.Amount,
		"PartyA":            phone,
		"PartyB":            c.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  input.AccountReference,
		"TransactionDesc":   input.TransactionDesc,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stk push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build stk push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}
	defer resp.Body.Close()

	var pushResp STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("failed to decode stk push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || pushResp.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: status %d, code %q, %s",
			resp.StatusCode, pushResp.ResponseCode, pushResp.ResponseDescription)
	}
	return &pushResp, nil
}

// CallbackPayload is the body Daraja posts to the callback URL once the
// customer completes or abandons the prompt.
type CallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// ReceiptNumber extracts the MpesaReceiptNumber metadata item, empty when
// the payment did not go through.
func (p *CallbackPayload) ReceiptNumber() string {
	for _, item := range p.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
