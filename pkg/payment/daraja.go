package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	timestampLayout = "20060102150405"
	tokenPath       = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath     = "/mpesa/stkpush/v1/processrequest"
	transactionType = "CustomerPayBillOnline"
	transactionDesc = "Payment for order"
)

// Daraja timestamps are East Africa Time regardless of where the server runs.
var eat = time.FixedZone("EAT", 3*60*60)

// DarajaOptions configures the Safaricom Daraja STK push client.
type DarajaOptions struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	// Timeout bounds each upstream call. Zero means 30s.
	Timeout time.Duration
	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
	// Now overrides the clock used for the request timestamp.
	Now func() time.Time
}

// DarajaProvider implements Provider against Safaricom's Daraja API.
type DarajaProvider struct {
	opts   DarajaOptions
	client *http.Client
	tokens oauth2.TokenSource
	log    *zap.Logger
}

func NewDarajaProvider(opts DarajaOptions, log *zap.Logger) *DarajaProvider {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	p := &DarajaProvider{opts: opts, client: client, log: log.Named("daraja")}
	// Daraja tokens live for an hour; reuse one until it is about to expire.
	p.tokens = oauth2.ReuseTokenSource(nil, &darajaTokenSource{p: p})
	return p
}

// Password is base64(shortcode + passkey + timestamp), as Daraja expects it.
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// Timestamp formats t as the YYYYMMDDHHmmss string Daraja expects, in EAT.
func Timestamp(t time.Time) string {
	return t.In(eat).Format(timestampLayout)
}

type darajaTokenSource struct {
	p *DarajaProvider
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"` // seconds, sent as a string
}

func (s *darajaTokenSource) Token() (*oauth2.Token, error) {
	p := s.p
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.BaseURL+tokenPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	req.SetBasicAuth(p.opts.ConsumerKey, p.opts.ConsumerSecret)

	p.log.Debug("requesting access token", zap.String("url", p.opts.BaseURL+tokenPath))
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classify(err, ErrUpstreamAuth)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err, ErrUpstreamAuth)
	}
	if resp.StatusCode != http.StatusOK {
		p.log.Warn("access token rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamAuth, resp.StatusCode)
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil || out.AccessToken == "" {
		return nil, fmt.Errorf("%w: unreadable token response", ErrUpstreamAuth)
	}
	tok := &oauth2.Token{AccessToken: out.AccessToken, TokenType: "Bearer"}
	if secs, err := strconv.Atoi(out.ExpiresIn); err == nil && secs > 0 {
		tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return tok, nil
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

func (p *DarajaProvider) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	tok, err := p.tokens.Token()
	if err != nil {
		return nil, err
	}

	ts := Timestamp(p.opts.Now())
	payload := stkPushPayload{
		BusinessShortCode: p.opts.ShortCode,
		Password:          Password(p.opts.ShortCode, p.opts.PassKey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		// Daraja only accepts whole shillings.
		Amount:           req.Amount.Ceil().IntPart(),
		PartyA:           req.Phone,
		PartyB:           p.opts.ShortCode,
		PhoneNumber:      req.Phone,
		CallBackURL:      p.opts.CallbackURL,
		AccountReference: fmt.Sprintf("Order%d", req.OrderID),
		TransactionDesc:  transactionDesc,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamPush, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamPush, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(httpReq)

	p.log.Info("sending stk push",
		zap.Uint("order_id", req.OrderID),
		zap.String("account_reference", payload.AccountReference),
		zap.Int64("amount", payload.Amount),
	)
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, classify(err, ErrUpstreamPush)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err, ErrUpstreamPush)
	}
	p.log.Info("stk push response", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamPush, resp.StatusCode)
	}

	var out STKPushResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: unreadable response: %v", ErrUpstreamPush, err)
	}
	if out.MerchantRequestID == "" || out.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: response missing request ids", ErrUpstreamPush)
	}
	return &out, nil
}

// classify maps a transport error onto ErrUpstreamTimeout when it was a deadline, else onto fallback.
func classify(err, fallback error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
