package api

import (
	"net/http"

	"github.com/prompt-gallery/internal/model"
)

// Page handlers return the data each page renders. They sit behind the gate,
// so they never check roles themselves.

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	v, err := h.views.Home(r.Context(), model.ClaimsFromContext(r.Context()), r.URL.Query().Get("category"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handler) PromptPage(w http.ResponseWriter, r *http.Request) {
	v, err := h.views.PromptDetail(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handler) SubmitPage(w http.ResponseWriter, r *http.Request) {
	v, err := h.views.Submit(r.Context(), model.ClaimsFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	v, err := h.views.Admin(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// AuthPage serves the sign-in and sign-up forms, which need no data.
func (h *Handler) AuthPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"page": r.URL.Path})
}
