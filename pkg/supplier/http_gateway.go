package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRequestTimeout bounds each supplier call. It must stay below the
// confirmation poll interval.
const DefaultRequestTimeout = 4 * time.Second

// HTTPConfig holds configuration for the HTTP supplier client
type HTTPConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// HTTPGateway talks to the supplier's JSON API
type HTTPGateway struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *logrus.Logger
}

// NewHTTPGateway creates a new supplier API client
func NewHTTPGateway(cfg HTTPConfig, logger *logrus.Logger) *HTTPGateway {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// GetName returns the name of this gateway
func (g *HTTPGateway) GetName() string {
	return "supplier_http"
}

// FinishBooking posts the booking to the supplier.
// 4xx answers carrying a JSON body are business rejections, not errors.
func (g *HTTPGateway) FinishBooking(ctx context.Context, req FinishBookingRequest) (*FinishBookingResult, error) {
	g.logger.WithFields(logrus.Fields{
		"partner_order_id": req.PartnerOrderID,
		"payment_kind":     req.Payment.Kind,
	}).Info("Supplier finish booking request")

	var result FinishBookingResult
	status, err := g.do(ctx, http.MethodPost, "/bookings/finish", req, &result)
	if err != nil {
		return nil, err
	}

	if status >= 400 && !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("supplier returned HTTP %d", status)
	}
	if result.Success && result.ItemID == "" {
		return nil, fmt.Errorf("%w: finish booking response missing itemId", ErrSupplierUnavailable)
	}

	g.logger.WithFields(logrus.Fields{
		"partner_order_id": req.PartnerOrderID,
		"success":          result.Success,
		"order_id":         result.OrderID,
		"error":            result.Error,
	}).Info("Supplier finish booking response")

	return &result, nil
}

// CheckStatus fetches the booking status for a partner order id
func (g *HTTPGateway) CheckStatus(ctx context.Context, partnerOrderID string) (*StatusResult, error) {
	var result StatusResult
	path := "/bookings/" + url.PathEscape(partnerOrderID) + "/status"
	status, err := g.do(ctx, http.MethodGet, path, nil, &result)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: status check returned HTTP %d", ErrSupplierUnavailable, status)
	}

	result.Status = Status(strings.ToUpper(strings.TrimSpace(string(result.Status))))
	if !result.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, result.Status)
	}

	g.logger.WithFields(logrus.Fields{
		"partner_order_id": partnerOrderID,
		"status":           result.Status,
	}).Debug("Supplier status check")

	return &result, nil
}

// GetOrderInfo fetches order details for a supplier order id
func (g *HTTPGateway) GetOrderInfo(ctx context.Context, orderID int64) (*OrderInfo, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("order info requires a positive order id, got %d", orderID)
	}

	var result OrderInfo
	status, err := g.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(orderID, 10), nil, &result)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: order info returned HTTP %d", ErrSupplierUnavailable, status)
	}
	return &result, nil
}

// do runs one request under its own timeout and decodes the JSON answer into out.
// Transport failures and 5xx answers are reported as ErrSupplierUnavailable.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Api-Key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"method":      method,
			"path":        path,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Warn("Supplier request failed")
		return 0, fmt.Errorf("%w: %v", ErrSupplierUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: failed to read response: %v", ErrSupplierUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("%w: HTTP %d", ErrSupplierUnavailable, resp.StatusCode)
	}

	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: invalid response body: %v", ErrSupplierUnavailable, err)
		}
	}

	return resp.StatusCode, nil
}
