package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHTTPEngineEvaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/evaluate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Title != "Tool library" {
			t.Errorf("unexpected title %q", req.Title)
		}
		json.NewEncoder(w).Encode(Evaluation{
			Decision:         DecisionAdvance,
			AlignmentScore:   0.9,
			FeasibilityScore: 0.8,
			CompositeScore:   0.85,
		})
	}))
	defer srv.Close()

	engine := NewHTTPEngine(srv.URL, "test-key")
	eval, err := engine.Evaluate(context.Background(), Input{
		Title:        "Tool library",
		Category:     "infrastructure",
		BudgetAmount: decimal.NewFromInt(500),
	}, nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Decision != DecisionAdvance {
		t.Errorf("expected advance, got %s", eval.Decision)
	}
	if eval.CompositeScore != 0.85 {
		t.Errorf("expected composite 0.85, got %f", eval.CompositeScore)
	}
}

func TestHTTPEngineRejectsUnknownDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Evaluation{Decision: "maybe"})
	}))
	defer srv.Close()

	engine := NewHTTPEngine(srv.URL, "")
	if _, err := engine.Evaluate(context.Background(), Input{}, nil); err == nil {
		t.Fatal("expected unknown decision to fail")
	}
}

func TestHTTPEngineServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	engine := NewHTTPEngine(srv.URL, "")
	if _, err := engine.Evaluate(context.Background(), Input{}, nil); err == nil {
		t.Fatal("expected server error to surface")
	}
}

func TestStaticEngineAdvances(t *testing.T) {
	eval, err := NewStaticEngine().Evaluate(context.Background(), Input{}, nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Decision != DecisionAdvance {
		t.Errorf("expected advance, got %s", eval.Decision)
	}
}
