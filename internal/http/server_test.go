package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/memory"
	"moneymanager/internal/services"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	svc := services.New(memory.New(), nil, services.Options{})
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = svc.Close()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: missing request id", path)
		}
	}
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "http_requests_total 2") {
		t.Fatalf("metrics body:\n%s", rec.Body.String())
	}
}

func TestBudgetFlow(t *testing.T) {
	srv := newTestServer(t, Options{})

	// No plan yet.
	rec := do(t, srv, http.MethodGet, "/overall-plan?userId=u1", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "null" {
		t.Fatalf("empty plan: %d %q", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodGet, "/monthly-budget/2024/3?userId=u1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("month without plan: status=%d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/overall-plan", `{"userId":"u1","name":"Household","categories":[{"name":"Groceries","defaultBudget":300},{"name":"Fun","defaultBudget":50}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save plan: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/monthly-budget/2024/3?userId=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get month: %d %s", rec.Code, rec.Body.String())
	}
	month := decode[core.MonthlyBudget](t, rec)
	if len(month.Categories) != 2 || month.Categories[0].Budget.Cents != 30000 || len(month.Items) != 0 {
		t.Fatalf("materialized month = %+v", month)
	}

	// Same key again returns the same record, also under /api.
	again := decode[core.MonthlyBudget](t, do(t, srv, http.MethodGet, "/api/monthly-budget/2024/3?userId=u1", ""))
	if again.ID != month.ID {
		t.Fatalf("second read id = %s, want %s", again.ID, month.ID)
	}

	rec = do(t, srv, http.MethodPost, "/monthly-budget/"+month.ID+"/items",
		`{"item":{"categoryName":"Groceries","name":"Market","amount":"40.50","date":"2024-03-05"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: %d %s", rec.Code, rec.Body.String())
	}
	month = decode[core.MonthlyBudget](t, rec)
	if len(month.Items) != 1 {
		t.Fatalf("items = %+v", month.Items)
	}
	itemID := month.Items[0].ID

	// Partial edit keeps the other fields.
	rec = do(t, srv, http.MethodPost, "/monthly-budget/"+month.ID+"/items",
		`{"itemId":"`+itemID+`","item":{"amount":400}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit item: %d %s", rec.Code, rec.Body.String())
	}
	edited := decode[core.MonthlyBudget](t, rec).Items[0]
	if edited.Amount.Cents != 40000 || edited.Name != "Market" || edited.Date.String() != "2024-03-05" {
		t.Fatalf("edited item = %+v", edited)
	}

	summary := decode[core.MonthSummary](t, do(t, srv, http.MethodGet, "/monthly-budget/"+month.ID+"/summary", ""))
	groceries, _ := summary.Category("Groceries")
	if summary.TotalSpent.Cents != 40000 || !groceries.Overspent || summary.Remaining.Cents != -5000 {
		t.Fatalf("summary = %+v", summary)
	}

	rec = do(t, srv, http.MethodDelete, "/monthly-budget/"+month.ID+"/items/"+itemID, "")
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["message"] == "" {
		t.Fatalf("delete item: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodDelete, "/monthly-budget/"+month.ID+"/items/"+itemID, "")
	if rec.Code != http.StatusNotFound || decode[ErrorBody](t, rec).Error != "Item not found" {
		t.Fatalf("second delete: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPut, "/monthly-budget/"+month.ID, `{"categories":[{"name":"Rent","budget":1000}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace categories: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[core.MonthlyBudget](t, rec); len(got.Categories) != 1 || got.Categories[0].Name != "Rent" {
		t.Fatalf("categories = %+v", got.Categories)
	}

	activity := decode[[]core.BudgetEvent](t, do(t, srv, http.MethodGet, "/monthly-budget/"+month.ID+"/activity?limit=2", ""))
	if len(activity) != 2 || activity[0].Type != core.EventMonthCategoriesReplaced {
		t.Fatalf("activity = %+v", activity)
	}

	// Editing the plan does not touch the existing month.
	rec = do(t, srv, http.MethodPut, "/overall-plan/category/Groceries", `{"userId":"u1","defaultBudget":999}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update category: %d %s", rec.Code, rec.Body.String())
	}
	plan := decode[core.OverallPlan](t, rec)
	if plan.Categories[0].DefaultBudget.Cents != 99900 || plan.Categories[0].Name != "Groceries" {
		t.Fatalf("plan = %+v", plan)
	}
	month = decode[core.MonthlyBudget](t, do(t, srv, http.MethodGet, "/monthly-budget/2024/3?userId=u1", ""))
	if month.Categories[0].Name != "Rent" {
		t.Fatalf("existing month changed: %+v", month.Categories)
	}
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/overall-plan", `{"name":"Plan","categories":[{"name":"Food","defaultBudget":10}]}`)
	month := decode[core.MonthlyBudget](t, do(t, srv, http.MethodGet, "/monthly-budget/2024/1", ""))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		field  string
	}{
		{"bad month", http.MethodGet, "/monthly-budget/2024/13", "", http.StatusBadRequest, ""},
		{"non numeric year", http.MethodGet, "/monthly-budget/abcd/1", "", http.StatusBadRequest, ""},
		{"unknown budget", http.MethodPut, "/monthly-budget/missing", `{"categories":[]}`, http.StatusNotFound, ""},
		{"categories missing", http.MethodPut, "/monthly-budget/" + month.ID, `{}`, http.StatusUnprocessableEntity, "categories"},
		{"malformed json", http.MethodPost, "/monthly-budget/" + month.ID + "/items", `{"item":`, http.StatusBadRequest, ""},
		{"item missing name", http.MethodPost, "/monthly-budget/" + month.ID + "/items",
			`{"item":{"categoryName":"Food","amount":1,"date":"2024-01-02"}}`, http.StatusUnprocessableEntity, "item.name"},
		{"bad amount", http.MethodPost, "/monthly-budget/" + month.ID + "/items",
			`{"item":{"categoryName":"Food","name":"x","amount":"ten","date":"2024-01-02"}}`, http.StatusUnprocessableEntity, "item.amount"},
		{"empty date", http.MethodPost, "/monthly-budget/" + month.ID + "/items",
			`{"item":{"categoryName":"Food","name":"x","amount":1,"date":""}}`, http.StatusUnprocessableEntity, "item.date"},
		{"unparseable date", http.MethodPost, "/monthly-budget/" + month.ID + "/items",
			`{"item":{"categoryName":"Food","name":"x","amount":1,"date":"02/01/2024"}}`, http.StatusUnprocessableEntity, "item.date"},
		{"bad category budget", http.MethodPut, "/monthly-budget/" + month.ID,
			`{"categories":[{"name":"Food","budget":5},{"name":"Fun","budget":"lots"}]}`, http.StatusUnprocessableEntity, "categories[1].budget"},
		{"bad plan budget", http.MethodPut, "/overall-plan/category/Food", `{"defaultBudget":"1.2.3"}`, http.StatusUnprocessableEntity, "defaultBudget"},
		{"bad initial investment", http.MethodPost, "/investments",
			`{"name":"ETF","ticker":"VWCE","type":"ETF","value":10,"initialInvestment":"x"}`, http.StatusUnprocessableEntity, "initialInvestment"},
		{"unknown item", http.MethodPost, "/monthly-budget/" + month.ID + "/items",
			`{"itemId":"nope","item":{"name":"x"}}`, http.StatusNotFound, ""},
		{"plan without name", http.MethodPost, "/overall-plan", `{"categories":[]}`, http.StatusUnprocessableEntity, "name"},
		{"unknown plan category", http.MethodPut, "/overall-plan/category/Nope", `{"defaultBudget":1}`, http.StatusNotFound, ""},
		{"unknown route", http.MethodGet, "/nothing-here", "", http.StatusNotFound, ""},
		{"probe", http.MethodGet, "/.env", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.field != "" {
				if got := decode[ErrorBody](t, rec).Field; got != tt.field {
					t.Fatalf("field = %q, want %q", got, tt.field)
				}
			}
		})
	}
}

func TestBodyUserIDIsSanitized(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/overall-plan", `{"userId":" u\u0001x ","name":"Plan","categories":[{"name":"Food","defaultBudget":10}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	if scope := decode[core.OverallPlan](t, rec).UserScope; scope != "ux" {
		t.Fatalf("stored userId = %q, want %q", scope, "ux")
	}

	rec = do(t, srv, http.MethodGet, "/overall-plan?userId=u%01x", "")
	plan := decode[*core.OverallPlan](t, rec)
	if plan == nil || plan.Name != "Plan" {
		t.Fatalf("plan read back with the same userId = %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodPut, "/overall-plan/category/Food", `{"userId":"u\u0001x","defaultBudget":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update category: %d %s", rec.Code, rec.Body.String())
	}
}

func TestInvestmentsAndDashboard(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/investments", `{"name":"World","ticker":"vwce","type":"ETF","value":1100,"initialInvestment":1000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	in := decode[core.Investment](t, rec)
	if in.Ticker != "VWCE" || in.ReturnPercentage != 10 {
		t.Fatalf("created = %+v", in)
	}

	rec = do(t, srv, http.MethodPost, "/investments", `{"name":"Bad","ticker":"X","type":"Tulips","value":1}`)
	if rec.Code != http.StatusUnprocessableEntity || decode[ErrorBody](t, rec).Field != "type" {
		t.Fatalf("invalid type: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPut, "/investments/"+in.ID, `{"name":"World","ticker":"VWCE","type":"ETF","value":900,"initialInvestment":1000}`)
	if rec.Code != http.StatusOK || decode[core.Investment](t, rec).ReturnPercentage != -10 {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	portfolio := decode[core.PortfolioSummary](t, do(t, srv, http.MethodGet, "/investments/summary", ""))
	if portfolio.Count != 1 || portfolio.TotalValue.Cents != 90000 {
		t.Fatalf("portfolio = %+v", portfolio)
	}

	dash := decode[services.Dashboard](t, do(t, srv, http.MethodGet, "/dashboard?year=2024&month=2", ""))
	if dash.Summary != nil || dash.Portfolio.Count != 1 || dash.Month != 2 {
		t.Fatalf("dashboard without plan = %+v", dash)
	}

	rec = do(t, srv, http.MethodDelete, "/investments/"+in.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/investments/"+in.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
	if list := decode[[]core.Investment](t, do(t, srv, http.MethodGet, "/investments", "")); len(list) != 0 {
		t.Fatalf("list after delete = %+v", list)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	body := `{"name":"Plan","categories":[]}`
	if rec := do(t, srv, http.MethodPost, "/overall-plan", body); rec.Code != http.StatusOK {
		t.Fatalf("first write: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/overall-plan", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/overall-plan", ""); rec.Code != http.StatusOK {
		t.Fatalf("read after limit: %d", rec.Code)
	}
}
