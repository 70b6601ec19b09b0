package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RESTGateway sends SMS through a token-authenticated JSON API
// (POST /login, then POST /sms with a bearer token)
type RESTGateway struct {
	apiURL   string
	username string
	password string
	mask     string
	client   *http.Client
	logger   *logrus.Logger

	// Token management
	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time
}

// RESTConfig holds configuration for the REST SMS gateway
type RESTConfig struct {
	APIURL   string
	Username string
	Password string
	Mask     string
}

// NewRESTGateway creates a new REST SMS gateway client
func NewRESTGateway(config RESTConfig, logger *logrus.Logger) *RESTGateway {
	return &RESTGateway{
		apiURL:   strings.TrimRight(config.APIURL, "/"),
		username: config.Username,
		password: config.Password,
		mask:     config.Mask,
		logger:   logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status     string `json:"status"`
	Comment    string `json:"comment"`
	Token      string `json:"token"`
	Expiration int    `json:"expiration"` // seconds
	ErrCode    string `json:"errCode"`
}

type smsRecipient struct {
	Mobile string `json:"mobile"`
}

type sendSMSRequest struct {
	MSISDN        []smsRecipient `json:"msisdn"`
	Message       string         `json:"message"`
	SourceAddress string         `json:"sourceAddress,omitempty"`
	TransactionID int64          `json:"transaction_id"`
}

type sendSMSResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	ErrCode string `json:"errCode"`
}

// GetName returns the name of this gateway
func (g *RESTGateway) GetName() string {
	return "rest_sms"
}

// SendMessage sends a single SMS
func (g *RESTGateway) SendMessage(ctx context.Context, phone, message string) (int64, error) {
	if err := g.ensureValidToken(ctx); err != nil {
		return 0, fmt.Errorf("failed to get access token: %w", err)
	}

	transactionID := time.Now().UnixMicro()
	payload := sendSMSRequest{
		MSISDN:        []smsRecipient{{Mobile: strings.TrimPrefix(phone, "+")}},
		Message:       message,
		SourceAddress: g.mask,
		TransactionID: transactionID,
	}

	g.tokenMutex.RLock()
	token := g.token
	g.tokenMutex.RUnlock()

	var resp sendSMSResponse
	if err := g.postJSON(ctx, "/sms", token, payload, &resp); err != nil {
		return 0, fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Status != "success" {
		return 0, fmt.Errorf("SMS rejected: %s (error code: %s)", resp.Comment, resp.ErrCode)
	}

	g.logger.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"gateway":        g.GetName(),
	}).Info("SMS sent")

	return transactionID, nil
}

// login retrieves and caches an access token
func (g *RESTGateway) login(ctx context.Context) error {
	var resp loginResponse
	if err := g.postJSON(ctx, "/login", "", loginRequest{Username: g.username, Password: g.password}, &resp); err != nil {
		return fmt.Errorf("failed to send login request: %w", err)
	}
	if resp.Status != "success" || resp.Token == "" {
		return fmt.Errorf("login failed: %s (error code: %s)", resp.Comment, resp.ErrCode)
	}

	g.tokenMutex.Lock()
	g.token = resp.Token
	g.tokenExpiry = time.Now().Add(time.Duration(resp.Expiration) * time.Second)
	g.tokenMutex.Unlock()

	return nil
}

// isTokenValid checks if the current token is still valid
func (g *RESTGateway) isTokenValid() bool {
	g.tokenMutex.RLock()
	defer g.tokenMutex.RUnlock()

	if g.token == "" {
		return false
	}

	// Consider token invalid 5 minutes before actual expiry
	return time.Now().Before(g.tokenExpiry.Add(-5 * time.Minute))
}

func (g *RESTGateway) ensureValidToken(ctx context.Context) error {
	if g.isTokenValid() {
		return nil
	}
	return g.login(ctx)
}

func (g *RESTGateway) postJSON(ctx context.Context, path, token string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
