package http

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"sharelooped/internal/i18n"
)

// I18nHandler serves translation lookups and the preferred-language setting.
type I18nHandler struct {
	catalog *i18n.Catalog
	state   *i18n.State
	logger  *slog.Logger
}

// NewI18nHandler creates an I18nHandler.
func NewI18nHandler(catalog *i18n.Catalog, state *i18n.State, logger *slog.Logger) *I18nHandler {
	return &I18nHandler{catalog: catalog, state: state, logger: logger}
}

// Section handles GET /api/i18n/{section}: all translations for one section.
func (h *I18nHandler) Section(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")

	entries := h.catalog.GetSection(section, h.requestLanguage(r))
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "unknown section")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// TranslateOne handles GET /api/i18n/translate?key=section.key[&lang=...].
func (h *I18nHandler) TranslateOne(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	lang := h.requestLanguage(r)
	writeJSON(w, http.StatusOK, map[string]string{
		"key":      key,
		"language": string(lang),
		"value":    h.catalog.Translate(key, lang),
	})
}

// GetLanguage handles GET /api/language.
func (h *I18nHandler) GetLanguage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"preferredLanguage": string(h.state.Language()),
	})
}

// SetLanguage handles PUT /api/language.
func (h *I18nHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PreferredLanguage string `json:"preferredLanguage"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeDecodeError(w, err)
		return
	}

	lang, err := h.state.Set(payload.PreferredLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"preferredLanguage": string(lang),
	})
}

// requestLanguage resolves the language for a request: an explicit, valid
// ?lang= wins, otherwise the persisted preference applies.
func (h *I18nHandler) requestLanguage(r *http.Request) i18n.Language {
	if raw := r.URL.Query().Get("lang"); raw != "" {
		if lang, ok := i18n.ParseLanguage(raw); ok {
			return lang
		}
		h.logger.Warn("unknown language requested, using preference", "lang", raw)
	}
	return h.state.Language()
}
