package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"moneymanager/internal/core"
)

type replaceCategoriesRequest struct {
	Categories []core.MonthlyCategory `json:"categories"`
}

type upsertItemRequest struct {
	Item   *core.ItemPatch `json:"item"`
	ItemID string          `json:"itemId"`
}

type savePlanRequest struct {
	UserID     string              `json:"userId"`
	Name       string              `json:"name"`
	Categories []core.PlanCategory `json:"categories"`
}

type updatePlanCategoryRequest struct {
	UserID        string      `json:"userId"`
	Name          *string     `json:"name"`
	DefaultBudget *core.Money `json:"defaultBudget"`
}

func (s *Server) handleGetMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	params, err := parsePathMonth(r)
	if err != nil {
		s.fail(w, r, "get_monthly_budget", err)
		return
	}

	b, err := s.services.Months.GetOrCreate(r.Context(), params.Year, params.Month, userScope(r))
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("No plan found").Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, "get_monthly_budget", err)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var req replaceCategoriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badBody(w, r, "replace_categories", err)
		return
	}
	if req.Categories == nil {
		FieldError("categories", "categories: is required").Write(w)
		return
	}

	b, err := s.services.Months.ReplaceCategories(r.Context(), chi.URLParam(r, "id"), req.Categories)
	if err != nil {
		s.fail(w, r, "replace_categories", err)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleUpsertItem(w http.ResponseWriter, r *http.Request) {
	var req upsertItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badBody(w, r, "upsert_item", err)
		return
	}
	if req.Item == nil {
		FieldError("item", "item: is required").Write(w)
		return
	}

	b, err := s.services.Ledger.UpsertItem(r.Context(), chi.URLParam(r, "id"), *req.Item, strings.TrimSpace(req.ItemID))
	if err != nil {
		s.fail(w, r, "upsert_item", err)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	_, err := s.services.Ledger.DeleteItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		s.fail(w, r, "delete_item", err)
		return
	}
	NewJSONResponse().Message("Item deleted").Write(w)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.services.Months.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "month_summary", err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	events, err := s.services.Activity.ForBudget(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.fail(w, r, "list_activity", err)
		return
	}
	if events == nil {
		events = []core.BudgetEvent{}
	}
	NewJSONResponse().Body(events).Write(w)
}

// handleGetPlan answers null rather than 404 when the scope has no plan yet.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.services.Plans.GetPlan(r.Context(), userScope(r))
	if errors.Is(err, core.ErrNotFound) {
		NewJSONResponse().Body(nil).Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, "get_plan", err)
		return
	}
	NewJSONResponse().Body(plan).Write(w)
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req savePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badBody(w, r, "save_plan", err)
		return
	}
	scope := bodyScope(r, req.UserID)

	plan, err := s.services.Plans.SavePlan(r.Context(), scope, req.Name, req.Categories)
	if err != nil {
		s.fail(w, r, "save_plan", err)
		return
	}
	NewJSONResponse().Body(plan).Write(w)
}

func (s *Server) handleUpdatePlanCategory(w http.ResponseWriter, r *http.Request) {
	catName, err := url.PathUnescape(chi.URLParam(r, "catName"))
	if err != nil {
		BadRequestError("invalid category name").Write(w)
		return
	}
	var req updatePlanCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badBody(w, r, "update_plan_category", err)
		return
	}
	scope := bodyScope(r, req.UserID)

	plan, err := s.services.Plans.UpdateCategory(r.Context(), scope, catName, core.PlanCategoryPatch{
		Name:          req.Name,
		DefaultBudget: req.DefaultBudget,
	})
	if err != nil {
		s.fail(w, r, "update_plan_category", err)
		return
	}
	NewJSONResponse().Body(plan).Write(w)
}

// badBody answers a body that could not be decoded. Unparseable amounts and
// dates are reported against their field.
func (s *Server) badBody(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if errors.Is(err, core.ErrValidation) {
		s.fail(w, r, operation, err)
		return
	}
	BadRequestError(err.Error()).Write(w)
}
