package http

import (
	"budgetwise/internal/export"
	"budgetwise/internal/log"
	"budgetwise/internal/palette"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type colorResponse struct {
	Category string `json:"category"`
	Color    string `json:"color"`
	RGBA     string `json:"rgba,omitempty"`
}

func (s *Server) handleCategoryColor(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(chi.URLParam(r, "id"))
	if category == "" {
		BadRequestError("category id is required").Write(w)
		return
	}
	resp := colorResponse{Category: category, Color: s.palette.ColorFor(category)}

	if v := sanitizeInput(r.URL.Query().Get("opacity")); v != "" {
		opacity, err := strconv.ParseFloat(v, 64)
		if err != nil {
			BadRequestError(fmt.Sprintf("invalid opacity %q", v)).Write(w)
			return
		}
		rgba, err := palette.WithOpacity(resp.Color, opacity)
		if errors.Is(err, palette.ErrInvalidOpacity) {
			BadRequestError(fmt.Sprintf("invalid opacity %q", v)).Write(w)
			return
		}
		if err != nil {
			InternalServerError("palette error").Write(w)
			return
		}
		resp.RGBA = rgba
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		ErrorResponse(http.StatusNotImplemented, "export not configured").Write(w)
		return
	}
	year, err := ParseYearQuery(r.URL.Query(), s.today().Year())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	report := s.reports.Build(r.Context(), year)
	f, err := export.Workbook(report)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Workbook build failed",
			log.FieldComponent, log.ComponentExport,
			log.FieldYear, year,
			log.FieldError, err)
		InternalServerError("export failed").Write(w)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="budgetwise-%d.xlsx"`, year))
	if _, err := f.WriteTo(w); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Workbook write interrupted",
			log.FieldYear, year,
			log.FieldError, err)
	}
}
