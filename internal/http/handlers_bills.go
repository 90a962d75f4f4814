package http

import (
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type billsResponse struct {
	Bills     []core.Bill           `json:"bills"`
	Issues    []core.IntegrityIssue `json:"issues"`
	FetchedAt time.Time             `json:"fetchedAt"`
}

type dayResponse struct {
	Date  core.Date             `json:"date"`
	Bills []services.Occurrence `json:"bills"`
	Total decimal.Decimal       `json:"total"`
}

type upcomingResponse struct {
	From  core.Date               `json:"from"`
	Days  int                     `json:"days"`
	Bills []services.UpcomingBill `json:"bills"`
	Total decimal.Decimal         `json:"total"`
}

// ensureBills refreshes the bill list when it is older than billsTTL. A
// failed refresh is only fatal when nothing was ever fetched.
func (s *Server) ensureBills(ctx context.Context, force bool) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	fetched := s.calendar.FetchedAt()
	if !force && !fetched.IsZero() && s.now().Sub(fetched) < billsTTL {
		return nil
	}
	if err := s.calendar.Refresh(ctx); err != nil {
		if fetched.IsZero() {
			return err
		}
		log.FromContext(ctx).WarnContext(ctx, "Bill refresh failed, serving previous list",
			log.FieldComponent, log.ComponentBills,
			log.FieldError, err)
	}
	return nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	if err := s.ensureBills(r.Context(), force); err != nil {
		BackendError(err).Write(w)
		return
	}
	bills := s.calendar.Bills()
	if bills == nil {
		bills = []core.Bill{}
	}
	issues := s.calendar.Issues()
	if issues == nil {
		issues = []core.IntegrityIssue{}
	}
	NewJSONResponse().Body(billsResponse{
		Bills:     bills,
		Issues:    issues,
		FetchedAt: s.calendar.FetchedAt(),
	}).Write(w)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := ParseDaysQuery(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ensureBills(r.Context(), false); err != nil {
		BackendError(err).Write(w)
		return
	}
	from := s.today()
	upcoming := s.calendar.Upcoming(from, days)
	NewJSONResponse().Body(upcomingResponse{
		From:  from,
		Days:  days,
		Bills: upcoming,
		Total: sumAmounts(upcoming, func(u services.UpcomingBill) decimal.Decimal { return u.Bill.Amount }),
	}).Write(w)
}

func (s *Server) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDateQuery(r.URL.Query(), "date", s.today())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ensureBills(r.Context(), false); err != nil {
		BackendError(err).Write(w)
		return
	}
	occ := s.calendar.Day(day)
	if occ == nil {
		occ = []services.Occurrence{}
	}
	NewJSONResponse().Body(dayResponse{
		Date:  day,
		Bills: occ,
		Total: sumAmounts(occ, func(o services.Occurrence) decimal.Decimal { return o.Bill.Amount }),
	}).Write(w)
}

func (s *Server) handleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDateQuery(r.URL.Query(), "date", s.today())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ensureBills(r.Context(), false); err != nil {
		BackendError(err).Write(w)
		return
	}
	NewJSONResponse().Body(s.calendar.Month(day)).Write(w)
}

func (s *Server) handleCalendarYear(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYearQuery(r.URL.Query(), s.today().Year())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ensureBills(r.Context(), false); err != nil {
		BackendError(err).Write(w)
		return
	}
	NewJSONResponse().Body(s.calendar.Year(year)).Write(w)
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	bill, err := s.calendar.MarkPaid(r.Context(), id)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Bill payment failed",
			log.FieldBillID, id,
			log.FieldError, err)
		BackendError(err).Write(w)
		return
	}
	s.events.LogBillPaid(r.Context(), bill.ID, bill.Name, bill.Amount.StringFixed(2), bill.NextDueDate.String())
	NewJSONResponse().Body(bill).Write(w)
}
