package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrintParams(t *testing.T) {
	t.Run("A4 portrait", func(t *testing.T) {
		params := buildPrintParams(&RenderRequest{
			HTML:      "<p>x</p>",
			PaperSize: PaperSizeA4,
			Margins:   DefaultMargins(),
		})

		assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
		assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
		assert.InDelta(t, mmToInches(10), params.marginTop, 0.001)
		assert.False(t, params.landscape)
		assert.Empty(t, params.footer)
	})

	t.Run("landscape keeps paper dimensions", func(t *testing.T) {
		params := buildPrintParams(&RenderRequest{PaperSize: PaperSizeA5, Landscape: true})

		assert.InDelta(t, mmToInches(148), params.paperWidth, 0.01)
		assert.InDelta(t, mmToInches(210), params.paperHeight, 0.01)
		assert.True(t, params.landscape)
	})

	t.Run("receipt roll uses a tall page", func(t *testing.T) {
		params := buildPrintParams(&RenderRequest{PaperSize: PaperSizeReceipt80})

		assert.InDelta(t, mmToInches(80), params.paperWidth, 0.01)
		assert.InDelta(t, mmToInches(receiptRollHeightMM), params.paperHeight, 0.01)
	})

	t.Run("footer reserves bottom margin", func(t *testing.T) {
		params := buildPrintParams(&RenderRequest{
			PaperSize:  PaperSizeA4,
			Margins:    Margins{Bottom: 2},
			FooterHTML: "<span class=pageNumber></span>",
		})

		assert.InDelta(t, mmToInches(10), params.marginBottom, 0.001)
		assert.Equal(t, "<span class=pageNumber></span>", params.footer)
	})
}

func TestPrintParams_Command(t *testing.T) {
	cmd := printParams{paperWidth: 8, paperHeight: 11, landscape: true, footer: "<b>f</b>"}.command()

	assert.True(t, cmd.PrintBackground)
	assert.True(t, cmd.Landscape)
	assert.True(t, cmd.DisplayHeaderFooter)
	assert.Equal(t, "<b>f</b>", cmd.FooterTemplate)
	assert.Equal(t, 8.0, cmd.PaperWidth)

	plain := printParams{paperWidth: 8, paperHeight: 11}.command()
	assert.False(t, plain.DisplayHeaderFooter)
}

func TestBuildCompleteHTML(t *testing.T) {
	t.Run("wraps fragment", func(t *testing.T) {
		doc := buildCompleteHTML(&RenderRequest{HTML: "<p>hi</p>", Title: "Receipt <1>"})

		assert.Contains(t, doc, "<!DOCTYPE html>")
		assert.Contains(t, doc, "<title>Receipt &lt;1&gt;</title>")
		assert.Contains(t, doc, "<body><p>hi</p></body>")
	})

	t.Run("full document untouched", func(t *testing.T) {
		in := "<!doctype html><html><body>x</body></html>"
		assert.Equal(t, in, buildCompleteHTML(&RenderRequest{HTML: in}))
	})
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *RenderRequest
		wantCode string
	}{
		{name: "nil", req: nil, wantCode: ErrCodeInvalidHTML},
		{name: "empty html", req: &RenderRequest{HTML: "  "}, wantCode: ErrCodeInvalidHTML},
		{name: "bad paper", req: &RenderRequest{HTML: "<p/>", PaperSize: "B5"}, wantCode: ErrCodeInvalidPaperSize},
		{name: "ok", req: &RenderRequest{HTML: "<p/>", PaperSize: PaperSizeLetter}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var renderErr *RenderError
			require.ErrorAs(t, err, &renderErr)
			assert.Equal(t, tt.wantCode, renderErr.Code)
		})
	}

	t.Run("defaults paper size", func(t *testing.T) {
		req := &RenderRequest{HTML: "<p/>"}
		require.NoError(t, validateRequest(req))
		assert.Equal(t, PaperSizeA4, req.PaperSize)
	})
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.4 nothing")))
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page /Parent 1 >> << /Type/Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
}

func TestChromedpRenderer_RejectsInvalidRequest(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{})
	defer r.Close()

	_, err := r.Render(context.Background(), &RenderRequest{})

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
}

func TestRenderError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRenderError(ErrCodeRenderFailed, "failed", cause)

	assert.Equal(t, "failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed", NewRenderError(ErrCodeRenderFailed, "failed", nil).Error())
}

func TestPaperSize(t *testing.T) {
	w, h := PaperSizeReceipt80.Dimensions()
	assert.Equal(t, 80.0, w)
	assert.Zero(t, h)
	assert.True(t, PaperSizeReceipt80.IsReceipt())
	assert.False(t, PaperSizeA4.IsReceipt())
	assert.False(t, PaperSize("A3").IsValid())
}
