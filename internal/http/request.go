package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"moneymanager/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using the
// current month as default. Present but malformed values are an error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, core.ErrInvalidYear
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, core.ErrInvalidMonth
		}
		params.Month = m
	}
	return params, core.ValidateYearMonth(params.Year, params.Month)
}

// parsePathMonth reads the {year} and {month} route parameters.
func parsePathMonth(r *http.Request) (MonthParams, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return MonthParams{}, core.ErrInvalidYear
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return MonthParams{}, core.ErrInvalidMonth
	}
	return MonthParams{Year: year, Month: month}, core.ValidateYearMonth(year, month)
}

// userScope resolves the userId query parameter, falling back to the default scope.
func userScope(r *http.Request) string {
	return core.ScopeOrDefault(sanitizeInput(r.URL.Query().Get("userId")))
}

// bodyScope prefers a userId sent in the body, cleaned the same way as the
// query parameter, and falls back to userScope.
func bodyScope(r *http.Request, fromBody string) string {
	if scope := sanitizeInput(fromBody); scope != "" {
		return scope
	}
	return userScope(r)
}

// parseLimit reads an optional positive ?limit=, returning 0 when absent.
func parseLimit(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return n, nil
}

// errBadBody marks a request body that is not the expected JSON.
var errBadBody = errors.New("invalid request body")

// decodeJSON reads a single JSON value from the request body into dst. An
// unparseable amount or date comes back as a *core.ValidationError naming
// its path in the body, e.g. "item.date".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body larger than %d bytes", errBadBody, maxErr.Limit)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(dst); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate):
			return &core.ValidationError{Field: invalidValuePath(data, ""), Message: err.Error()}
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: body is empty", errBadBody)
		default:
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", errBadBody)
	}
	return nil
}

// Keys whose values decode into core.Money or core.Date.
var (
	moneyKeys = map[string]bool{"amount": true, "budget": true, "defaultBudget": true, "value": true, "initialInvestment": true}
	dateKeys  = map[string]bool{"date": true}
)

// invalidValuePath walks raw and returns the path of the first money or date
// value that does not decode, or "" when there is none.
func invalidValuePath(raw []byte, path string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if path != "" {
				p = path + "." + k
			}
			switch {
			case moneyKeys[k]:
				var m core.Money
				if json.Unmarshal(obj[k], &m) != nil {
					return p
				}
			case dateKeys[k]:
				var d core.Date
				if json.Unmarshal(obj[k], &d) != nil {
					return p
				}
			default:
				if found := invalidValuePath(obj[k], p); found != "" {
					return found
				}
			}
		}
		return ""
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for i, v := range arr {
			if found := invalidValuePath(v, fmt.Sprintf("%s[%d]", path, i)); found != "" {
				return found
			}
		}
	}
	return ""
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
