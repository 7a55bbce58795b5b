package printing

import (
	"bytes"
	"html/template"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders HTML templates with formatting helpers for money,
// dates and status labels. Parsed templates are cached by name.
type TemplateEngine struct {
	funcMap  template.FuncMap
	currency string
	location *time.Location

	mu     sync.RWMutex
	parsed map[string]*template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithCurrency sets the currency code printed by formatMoney. An empty
// code keeps the default.
func WithCurrency(code string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			e.currency = code
		}
	}
}

// WithLocation sets the time zone dates are printed in
func WithLocation(loc *time.Location) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a template engine
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		currency: "ETB",
		location: time.UTC,
		parsed:   make(map[string]*template.Template),
	}
	e.funcMap = template.FuncMap{
		"formatMoney":    e.formatMoney,
		"formatMoneyRaw": formatMoneyRaw,
		"formatDate":     e.formatDate,
		"formatDateTime": e.formatDateTime,
		"title":          titleCase,
		"label":          label,
		"upper":          strings.ToUpper,
		"default":        defaultString,
		"add":            func(a, b int) int { return a + b },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render parses content under name (once) and executes it with data
func (e *TemplateEngine) Render(name, content string, data interface{}) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := e.lookup(name, content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template "+name, err)
	}
	return buf.String(), nil
}

func (e *TemplateEngine) lookup(name, content string) (*template.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.parsed[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse template "+name, err)
	}
	e.mu.Lock()
	e.parsed[name] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

// Currency returns the currency code printed by formatMoney
func (e *TemplateEngine) Currency() string {
	return e.currency
}

// formatMoney formats an amount with the engine's currency code
// Example: 1234.5 -> "ETB 1,234.50"
func (e *TemplateEngine) formatMoney(v interface{}) string {
	if e.currency == "" {
		return formatMoneyRaw(v)
	}
	return e.currency + " " + formatMoneyRaw(v)
}

// formatMoneyRaw formats an amount with thousand separators and two decimals
// Example: -1234.5 -> "-1,234.50"
func formatMoneyRaw(v interface{}) string {
	d := toDecimal(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")
	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return sign + result.String() + "." + decPart
}

func (e *TemplateEngine) formatDate(v interface{}) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format("Jan 2, 2006")
}

func (e *TemplateEngine) formatDateTime(v interface{}) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format("Jan 2, 2006 15:04")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// label turns a status token into display text: "mark_delivered" -> "Mark Delivered"
func label(v interface{}) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case interface{ String() string }:
		s = val.String()
	default:
		return ""
	}
	return titleCase(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

func defaultString(def string, v interface{}) string {
	switch val := v.(type) {
	case nil:
		return def
	case string:
		if strings.TrimSpace(val) == "" {
			return def
		}
		return val
	case interface{ String() string }:
		if s := val.String(); s != "" {
			return s
		}
		return def
	}
	return def
}

func toDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func toTime(v interface{}) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
