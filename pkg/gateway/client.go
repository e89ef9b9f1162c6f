package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paperhub/admindata/pkg/domain"
	"github.com/paperhub/admindata/pkg/logger"
	"github.com/paperhub/admindata/pkg/models"
)

// Client performs the real network operations against the marketplace
// backend and classifies their outcomes. It carries no fallback logic itself;
// callers decide what to do with an Unreachable classification.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	logger  logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used in tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token attached to every upstream request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a gateway client for the given upstream base URL
func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.Default()
	}

	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListPartners fetches all referral partners
func (c *Client) ListPartners(ctx context.Context) ([]models.Partner, error) {
	return doList[models.Partner](ctx, c, "/users/admin_partners/")
}

// ListEarnings fetches all partner earnings
func (c *Client) ListEarnings(ctx context.Context) ([]models.Earning, error) {
	return doList[models.Earning](ctx, c, "/users/admin_earnings/")
}

// ListArbitrators fetches the arbitrator roster
func (c *Client) ListArbitrators(ctx context.Context) ([]models.Arbitrator, error) {
	return doList[models.Arbitrator](ctx, c, "/users/admin_arbitrators/")
}

// ListDisputes fetches all order disputes
func (c *Client) ListDisputes(ctx context.Context) ([]models.Dispute, error) {
	return doList[models.Dispute](ctx, c, "/orders/disputes/")
}

// UpdatePartner applies a partial partner update and returns the
// authoritative partner record from the server
func (c *Client) UpdatePartner(ctx context.Context, id int, patch models.PartnerPatch) (*models.Partner, error) {
	path := fmt.Sprintf("/users/%d/admin_update_partner/", id)

	body, err := c.do(ctx, http.MethodPatch, path, patch)
	if err != nil {
		return nil, err
	}

	var partner models.Partner
	if err := json.Unmarshal(body, &partner); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("decoding partner response: %w", err))
	}
	return &partner, nil
}

// MarkEarningPaid marks a single earning as paid out. The upstream responds
// with a bare message, so no entity is returned.
func (c *Client) MarkEarningPaid(ctx context.Context, earningID int) error {
	req := models.MarkEarningPaidRequest{EarningID: earningID}
	_, err := c.do(ctx, http.MethodPost, "/users/admin_mark_earning_paid/", req)
	return err
}

// AssignArbitrator assigns an arbitrator to a dispute and returns the updated dispute
func (c *Client) AssignArbitrator(ctx context.Context, disputeID, arbitratorID int) (*models.Dispute, error) {
	path := fmt.Sprintf("/orders/disputes/%d/assign_arbitrator/", disputeID)
	req := models.AssignArbitratorRequest{ArbitratorID: arbitratorID}

	body, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}

	var dispute models.Dispute
	if err := json.Unmarshal(body, &dispute); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("decoding dispute response: %w", err))
	}
	return &dispute, nil
}

// ResolveDispute closes a dispute with a result text and returns the updated dispute
func (c *Client) ResolveDispute(ctx context.Context, disputeID int, result string) (*models.Dispute, error) {
	path := fmt.Sprintf("/orders/disputes/%d/resolve/", disputeID)
	req := models.ResolveDisputeRequest{Result: result}

	body, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}

	var dispute models.Dispute
	if err := json.Unmarshal(body, &dispute); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("decoding dispute response: %w", err))
	}
	return &dispute, nil
}

// doList performs a GET and normalizes the paging envelope to a typed slice
func doList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(UnwrapCollection(body), &items); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("decoding collection %s: %w", path, err))
	}
	return items, nil
}

// do performs one HTTP request and classifies the outcome per the error
// taxonomy: transport failures and 404 are Unreachable (degraded-mode
// trigger), 401 is Unauthorized, other 4xx are ValidationError, 5xx are
// ServerError. Success returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.NewInternalError(fmt.Errorf("encoding request body: %w", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("building request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream unreachable", "method", method, "path", path, "error", err)
		return nil, domain.NewUnreachableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("reading response body: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Warn("upstream route missing", "method", method, "path", path)
		return nil, domain.NewUnreachableError(fmt.Errorf("%s %s: %s", method, path, resp.Status))
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.NewUnauthorizedError()
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, domain.NewUpstreamValidationError(resp.StatusCode, upstreamMessage(body))
	default:
		return nil, domain.NewServerError(resp.StatusCode, upstreamMessage(body))
	}
}

// upstreamMessage extracts a human-readable message from an error body
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Detail != "":
		return payload.Detail
	default:
		return payload.Error
	}
}
