package logistics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/config"
	"github.com/oppshop/fulfillment/internal/service"
)

// Client talks to the logistics routing collaborator over HTTP. The routing
// engine itself is opaque: the ledger only hands it arrivals, leg
// assignments, leg completions, and return-delivery plans.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new logistics collaborator client
func NewClient(cfg config.LogisticsConfig, logger *zap.Logger) *Client {
	// Normalize base URL - remove trailing slashes
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		baseURL:  baseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NotifyArrival reports a receipt so the collaborator may plan onward legs
func (c *Client) NotifyArrival(ctx context.Context, notice service.ArrivalNotice) (*service.ArrivalPlan, error) {
	var plan service.ArrivalPlan
	if err := c.post(ctx, "/v1/arrivals", notice, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// AssignToLeg hands quantity to a named transport leg
func (c *Client) AssignToLeg(ctx context.Context, assignment service.LegAssignment) error {
	path := fmt.Sprintf("/v1/legs/%s/assign", assignment.LegID)
	return c.post(ctx, path, assignment, nil)
}

// CompleteLeg finalizes a leg and returns the tuples it completed
func (c *Client) CompleteLeg(ctx context.Context, legID uuid.UUID) ([]service.LegDelivery, error) {
	path := fmt.Sprintf("/v1/legs/%s/complete", legID)

	var response struct {
		Deliveries []service.LegDelivery `json:"deliveries"`
	}
	if err := c.post(ctx, path, struct{}{}, &response); err != nil {
		return nil, err
	}
	return response.Deliveries, nil
}

// PlanReturnDelivery submits newly created return orders for delivery planning
func (c *Client) PlanReturnDelivery(ctx context.Context, returns []service.ReturnDelivery) error {
	body := struct {
		Returns []service.ReturnDelivery `json:"returns"`
	}{Returns: returns}
	return c.post(ctx, "/v1/returns/plan", body, nil)
}

// post executes a JSON POST against the collaborator
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	url := c.baseURL + path

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logistics API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
