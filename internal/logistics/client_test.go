package logistics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/config"
	"github.com/oppshop/fulfillment/internal/service"
)

func newTestClient(serverURL string) *Client {
	// Trailing slash exercises the base URL normalization.
	return NewClient(config.LogisticsConfig{
		BaseURL:  serverURL + "/",
		APIToken: "test-token",
	}, zap.NewNop())
}

func TestCompleteLeg(t *testing.T) {
	legID := uuid.New()
	delivery := service.LegDelivery{
		OrderID:               uuid.New(),
		ProductID:             uuid.New(),
		Quantity:              2,
		DestinationLocationID: uuid.New(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		wantPath := fmt.Sprintf("/v1/legs/%s/complete", legID)
		if r.URL.Path != wantPath {
			t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"deliveries": []service.LegDelivery{delivery},
		})
	}))
	defer server.Close()

	deliveries, err := newTestClient(server.URL).CompleteLeg(context.Background(), legID)
	if err != nil {
		t.Fatalf("CompleteLeg: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0] != delivery {
		t.Errorf("deliveries = %+v, want %+v", deliveries, delivery)
	}
}

func TestNotifyArrivalForwardsNotice(t *testing.T) {
	var received service.ArrivalNotice
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/arrivals" {
			t.Errorf("path = %s, want /v1/arrivals", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode notice: %v", err)
		}
		json.NewEncoder(w).Encode(service.ArrivalPlan{})
	}))
	defer server.Close()

	notice := service.ArrivalNotice{
		OrderID:          uuid.New(),
		ProductID:        uuid.New(),
		Quantity:         3,
		LocationID:       uuid.New(),
		TargetLocationID: uuid.New(),
	}
	if _, err := newTestClient(server.URL).NotifyArrival(context.Background(), notice); err != nil {
		t.Fatalf("NotifyArrival: %v", err)
	}
	if received != notice {
		t.Errorf("server received %+v, want %+v", received, notice)
	}
}

func TestRejectionSurfacesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"no route to destination"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).AssignToLeg(context.Background(), service.LegAssignment{
		LegID: uuid.New(),
	})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
}
