package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. An empty body leaves dst
// untouched so required-field validation reports what is missing.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: body too large", errBadRequest)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// pathID parses a positive integer path value. Anything else is reported
// as not found, like an unknown route.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// parseMonthFilter reads year and month from the query. Missing values
// default to the current month.
func parseMonthFilter(q url.Values, now time.Time) (services.MonthFilter, error) {
	f := services.MonthFilter{Year: now.Year(), Month: int(now.Month())}
	v := core.NewValidationError()

	if s := strings.TrimSpace(q.Get("year")); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			v.Add("year", "The year field must be an integer.")
		}
		f.Year = y
	}
	if s := strings.TrimSpace(q.Get("month")); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil {
			v.Add("month", "The month field must be an integer.")
		}
		f.Month = m
	}
	if err := v.Err(); err != nil {
		return services.MonthFilter{}, err
	}
	if err := f.Validate(); err != nil {
		return services.MonthFilter{}, err
	}
	return f, nil
}

// flexString accepts a JSON string or number, since clients send enum
// codes and amounts either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*f = ""
		return nil
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexString(sanitizeInput(str))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return errors.New("expected a string or a number")
		}
		*f = flexString(n.String())
		return nil
	}
}

func (f flexString) String() string { return string(f) }

// fieldParser accumulates per-field parse failures.
type fieldParser struct {
	errs *core.ValidationError
}

func newFieldParser() *fieldParser {
	return &fieldParser{errs: core.NewValidationError()}
}

func (p *fieldParser) money(field string, raw flexString) core.Money {
	if raw == "" {
		p.errs.Add(field, "The "+field+" field is required.")
		return core.Money{}
	}
	m, err := core.ParseMoney(raw.String())
	if err != nil {
		if strings.HasPrefix(strings.TrimSpace(raw.String()), "-") {
			p.errs.Add(field, "The "+field+" field must be at least 0.")
		} else {
			p.errs.Add(field, "The "+field+" field must be a number.")
		}
	}
	return m
}

func (p *fieldParser) date(field string, raw string) core.Date {
	d, err := core.ParseDate(raw)
	if err != nil {
		p.errs.Add(field, "The "+strings.ReplaceAll(field, "_", " ")+" field must match the format Y-m-d.")
	}
	return d
}

// merge combines parse failures with domain validation. Fields that failed
// to parse keep only their parse message.
func (p *fieldParser) merge(validation error) error {
	if v, ok := core.IsValidation(validation); ok {
		for field, msgs := range v.Fields {
			if _, seen := p.errs.Fields[field]; seen {
				continue
			}
			p.errs.Fields[field] = msgs
		}
	} else if validation != nil {
		return validation
	}
	return p.errs.Err()
}
