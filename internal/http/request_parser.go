// This file implements utilities for parsing and validating request
// parameters shared by the API handlers.

package http

import (
	"budgetwise/internal/core"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes     = 1 << 16
	defaultLookahead = 7
	maxLookahead     = 366
	minYear          = 1970
	maxYear          = 2200
)

// ParseDateQuery reads a YYYY-MM-DD parameter, falling back to today.
func ParseDateQuery(query url.Values, key string, today core.Date) (core.Date, error) {
	v := sanitizeInput(query.Get(key))
	if v == "" {
		return today, nil
	}
	return core.ParseDate(v)
}

// ParseYearQuery reads the year parameter, falling back to the given year.
func ParseYearQuery(query url.Values, fallback int) (int, error) {
	v := sanitizeInput(query.Get("year"))
	if v == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < minYear || year > maxYear {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return year, nil
}

// ParseDaysQuery reads the look-ahead window in days.
func ParseDaysQuery(query url.Values) (int, error) {
	v := sanitizeInput(query.Get("days"))
	if v == "" {
		return defaultLookahead, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 0 || days > maxLookahead {
		return 0, fmt.Errorf("invalid days %q: must be between 0 and %d", v, maxLookahead)
	}
	return days, nil
}

// ParseIDParam reads a positive integer route parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	v := chi.URLParam(r, name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return id, nil
}

// ParsePriceQuery reads currentPrice as a finite, non-negative number.
func ParsePriceQuery(query url.Values) (float64, error) {
	v := sanitizeInput(query.Get("currentPrice"))
	if v == "" {
		return 0, fmt.Errorf("%w: currentPrice is required", core.ErrInvalidPrice)
	}
	price, err := strconv.ParseFloat(v, 64)
	if err != nil || !core.IsFinite(price) || price < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidPrice, v)
	}
	return price, nil
}

// DecodeJSONBody decodes a bounded JSON body into dst, rejecting unknown fields.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
