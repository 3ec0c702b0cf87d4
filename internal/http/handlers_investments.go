package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"moneymanager/internal/core"
)

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Investments.List(r.Context())
	if err != nil {
		s.fail(w, r, "list_investments", err)
		return
	}
	if items == nil {
		items = []core.Investment{}
	}
	NewJSONResponse().Body(items).Write(w)
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var in core.Investment
	if err := decodeJSON(w, r, &in); err != nil {
		s.badBody(w, r, "create_investment", err)
		return
	}
	created, err := s.services.Investments.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create_investment", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	in, err := s.services.Investments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get_investment", err)
		return
	}
	NewJSONResponse().Body(in).Write(w)
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	var in core.Investment
	if err := decodeJSON(w, r, &in); err != nil {
		s.badBody(w, r, "update_investment", err)
		return
	}
	updated, err := s.services.Investments.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, "update_investment", err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Investments.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "delete_investment", err)
		return
	}
	NewJSONResponse().Message("Deleted").Write(w)
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.services.Investments.Summary(r.Context())
	if err != nil {
		s.fail(w, r, "portfolio_summary", err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}
