package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogsLoad(t *testing.T) {
	require.NoError(t, Init())
	assert.Equal(t, []string{"en", "hu"}, Languages())
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	require.NoError(t, Init())
	for key := range translations["en"] {
		_, ok := translations["hu"][key]
		assert.True(t, ok, "hu is missing %q", key)
	}
}

func TestT_Fallbacks(t *testing.T) {
	assert.Equal(t, "Slide", T("en", "slide"))
	assert.Equal(t, "Dia", T("hu", "slide"))
	assert.Equal(t, "Slide", T("de", "slide"))
	assert.Equal(t, "no_such_key", T("hu", "no_such_key"))
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?lang=hu", nil)
	assert.Equal(t, "hu", FromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "lang", Value: "hu"})
	assert.Equal(t, "hu", FromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/?lang=xx", nil)
	r.Header.Set("Accept-Language", "de-DE,hu-HU;q=0.8,en;q=0.5")
	assert.Equal(t, "hu", FromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, DefaultLang, FromRequest(r))
}
