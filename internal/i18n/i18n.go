package i18n

import (
	"embed"
	"encoding/json"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
)

// DefaultLang is used when a key or language is missing.
const DefaultLang = "en"

//go:embed resources/*.json
var resources embed.FS

var (
	loadOnce     sync.Once
	translations map[string]map[string]string
	loadErr      error
)

func load() {
	translations = make(map[string]map[string]string)
	files, err := resources.ReadDir("resources")
	if err != nil {
		loadErr = err
		return
	}
	for _, f := range files {
		if path.Ext(f.Name()) != ".json" {
			continue
		}
		data, err := resources.ReadFile(path.Join("resources", f.Name()))
		if err != nil {
			loadErr = err
			return
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			loadErr = err
			return
		}
		translations[strings.TrimSuffix(f.Name(), ".json")] = t
	}
}

// Init loads the embedded catalogs and reports a broken one. Lookups call it
// lazily, so calling it is only needed to surface the error at startup.
func Init() error {
	loadOnce.Do(load)
	return loadErr
}

// T translates key, falling back to English and then to the key itself.
func T(lang, key string) string {
	loadOnce.Do(load)
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	if t, ok := translations[DefaultLang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	return key
}

// Languages lists the available catalogs, sorted.
func Languages() []string {
	loadOnce.Do(load)
	langs := make([]string, 0, len(translations))
	for l := range translations {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Supported reports whether a catalog exists for lang.
func Supported(lang string) bool {
	loadOnce.Do(load)
	_, ok := translations[lang]
	return ok
}

// FromRequest picks the language from the lang query parameter, the lang
// cookie or the Accept-Language header, in that order.
func FromRequest(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); Supported(l) {
		return l
	}
	if c, err := r.Cookie("lang"); err == nil && Supported(c.Value) {
		return c.Value
	}
	for _, part := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(base) {
			return base
		}
	}
	return DefaultLang
}
