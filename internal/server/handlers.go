package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/kommo-bridge/internal/normalize"
	"github.com/sells-group/kommo-bridge/internal/pipeline"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("✅ DiccionarioCESCH API funcionando."))
}

func (s *Server) handleMapear(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "JSON inválido"})
		return
	}
	respondJSON(w, http.StatusOK, pipeline.MapManual(s.dicts, body))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	dictionary := chi.URLParam(r, "diccionario")
	id := chi.URLParam(r, "id")

	nombre, ok := s.dicts.Lookup(dictionary, id)
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Diccionario no válido"})
		return
	}
	if nombre == "" {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "ID no encontrado"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "nombre": nombre})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "JSON inválido"})
		return
	}

	// Echo mode: return the body untouched for webhook debugging.
	if r.URL.Query().Get("debug") == "1" {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "received": body})
		return
	}

	var opts pipeline.Options
	if v := r.URL.Query().Get("close_days"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			opts.CloseDays = days
		}
	}
	if v := r.URL.Query().Get("tz"); v != "" {
		opts.TimeZone = v
	}

	respondJSON(w, http.StatusOK, s.pipe.TranslateBatch(r.Context(), body, opts))
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RawNumber any `json:"raw_number"`
		FullName  any `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "JSON inválido"})
		return
	}

	cleaned := normalize.CleanPhone(strings.TrimSpace(normalize.ToString(body.RawNumber)))
	normalized, short := normalize.PrepareName(strings.TrimSpace(normalize.ToString(body.FullName)))

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"cleaned_number":  cleaned,
		"number_length":   len(cleaned),
		"normalized_name": normalized,
		"short_name":      short,
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"ok":        true,
		"subdomain": s.subdomain,
	}

	token, err := s.tokens.Token(r.Context(), s.subdomain)
	out["token_present"] = err == nil && token != ""
	out["token_length"] = len(token)
	if err != nil {
		out["token_error"] = err.Error()
	}

	if acc, err := s.client.GetAccount(r.Context(), s.subdomain); err != nil {
		out["account_error"] = err.Error()
	} else {
		out["account"] = acc
	}

	respondJSON(w, http.StatusOK, out)
}
