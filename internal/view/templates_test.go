package view

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.Render(res, "pages/login.html", TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok",
	})
	require.NoError(t, err)
	body := res.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, "tok")
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
}

func TestRenderDeniedPageShowsObservedRole(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.Render(res, "pages/denied.html", TemplateData{
		Title: "Access Denied",
		Data: map[string]any{
			"Email":        "customer@papyrus.shop",
			"ObservedRole": "User",
		},
	})
	require.NoError(t, err)
	body := res.Body.String()
	assert.Contains(t, body, "customer@papyrus.shop")
	assert.Contains(t, body, "User")
}

func TestFormatCurrencyUsesIndianGrouping(t *testing.T) {
	got := currencyPrinter.Sprintf("%v", 1234567.5)
	// en-IN groups as 12,34,567.5.
	assert.True(t, strings.Contains(got, "12,34,567"), "got %q", got)
}
