package printing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoneyRaw(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{decimal.RequireFromString("1234.5"), "1,234.50"},
		{decimal.RequireFromString("1234567.891"), "1,234,567.89"},
		{decimal.RequireFromString("-1000"), "-1,000.00"},
		{999, "999.00"},
		{"12.3", "12.30"},
		{"garbage", "0.00"},
		{nil, "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoneyRaw(tt.in))
	}
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine(WithCurrency("usd"))
	data := map[string]interface{}{
		"Total":  decimal.RequireFromString("2500"),
		"When":   time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
		"Status": "mark_delivered",
		"Name":   "<script>",
		"Empty":  "",
	}

	out, err := e.Render("t", `{{formatMoney .Total}}|{{formatDate .When}}|{{formatDateTime .When}}|{{label .Status}}|{{.Name}}|{{default "N/A" .Empty}}|{{upper "ab"}}`, data)
	require.NoError(t, err)

	assert.Equal(t, "USD 2,500.00|Mar 4, 2026|Mar 4, 2026 15:30|Mark Delivered|&lt;script&gt;|N/A|AB", out)
	assert.Equal(t, "USD", e.Currency())
}

func TestTemplateEngine_Location(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	e := NewTemplateEngine(WithLocation(loc))

	out, err := e.Render("loc", `{{formatDateTime .}}`, time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Jan 2, 2026 01:00", out)
}

func TestTemplateEngine_Errors(t *testing.T) {
	e := NewTemplateEngine()

	_, err := e.Render("empty", " ", nil)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = e.Render("broken", "{{ .Unclosed", nil)
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = e.Render("exec", "{{ .Missing.Field }}", struct{}{})
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeRenderFailed, renderErr.Code)
}

func TestTemplateEngine_CachesByName(t *testing.T) {
	e := NewTemplateEngine()

	first, err := e.Render("same", "one", nil)
	require.NoError(t, err)
	second, err := e.Render("same", "two", nil)
	require.NoError(t, err)

	assert.Equal(t, "one", first)
	assert.Equal(t, "one", second)
}

func TestTemplateEngine_WithFuncs(t *testing.T) {
	e := NewTemplateEngine(WithFuncs(map[string]interface{}{
		"shout": func(s string) string { return s + "!" },
	}))

	out, err := e.Render("f", `{{shout "hi"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}

func TestToTime(t *testing.T) {
	assert.True(t, toTime("nope").IsZero())
	assert.Equal(t, 2026, toTime("2026-05-01").Year())
	assert.Equal(t, 2026, toTime("2026-05-01T10:00:00Z").Year())
	var nilTime *time.Time
	assert.True(t, toTime(nilTime).IsZero())
}
