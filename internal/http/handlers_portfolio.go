package http

import (
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"context"
	"net/http"
)

type investmentsResponse struct {
	Investments []core.Investment     `json:"investments"`
	Issues      []core.IntegrityIssue `json:"issues"`
	Simulating  bool                  `json:"simulating"`
	Ticks       int                   `json:"ticks"`
}

type simulationRequest struct {
	Enabled *bool `json:"enabled"`
}

// ensurePortfolio loads holdings on first use.
func (s *Server) ensurePortfolio(ctx context.Context, force bool) error {
	if s.portfolio.Loaded() && !force {
		return nil
	}
	if err := s.portfolio.Load(ctx); err != nil {
		if s.portfolio.Loaded() {
			log.FromContext(ctx).WarnContext(ctx, "Portfolio reload failed, serving previous holdings",
				log.FieldComponent, log.ComponentPortfolio,
				log.FieldError, err)
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	if err := s.ensurePortfolio(r.Context(), r.URL.Query().Get("refresh") == "true"); err != nil {
		BackendError(err).Write(w)
		return
	}
	view := s.portfolio.View()
	investments := view.Investments
	if investments == nil {
		investments = []core.Investment{}
	}
	issues := s.portfolio.Issues()
	if issues == nil {
		issues = []core.IntegrityIssue{}
	}
	NewJSONResponse().Body(investmentsResponse{
		Investments: investments,
		Issues:      issues,
		Simulating:  view.Running,
		Ticks:       view.Ticks,
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if err := s.ensurePortfolio(r.Context(), false); err != nil {
		BackendError(err).Write(w)
		return
	}
	NewJSONResponse().Body(s.portfolio.View().Summary).Write(w)
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if req.Enabled == nil {
		BadRequestError(`field "enabled" is required`).Write(w)
		return
	}
	if err := s.ensurePortfolio(r.Context(), false); err != nil {
		BackendError(err).Write(w)
		return
	}
	snap := s.portfolio.SetSimulation(*req.Enabled)
	s.events.LogSimulationToggled(r.Context(), snap.Running, len(snap.Investments))
	NewJSONResponse().Body(snap).Write(w)
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	price, err := ParsePriceQuery(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	inv, err := s.portfolio.UpdatePrice(r.Context(), id, price)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Price update failed",
			log.FieldInvestmentID, id,
			log.FieldPrice, price,
			log.FieldError, err)
		BackendError(err).Write(w)
		return
	}
	s.events.LogPriceUpdated(r.Context(), id, price)
	NewJSONResponse().Body(inv).Write(w)
}
