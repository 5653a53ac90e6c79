package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/prompt-gallery/internal/model"
)

// multipartOverhead is the room left for form fields on top of the image.
const multipartOverhead = 1 << 20

// SubmitPrompt godoc
// @Summary Submit a prompt
// @Description Submit a prompt with its image. Admin submissions are approved immediately, others wait for review.
// @Tags Prompts
// @Accept multipart/form-data
// @Produce json
// @Param text formData string true "Prompt text (at least 10 characters)"
// @Param categoryId formData string true "Category ID"
// @Param image formData file true "Prompt image"
// @Success 201 {object} model.Prompt
// @Failure 400 {object} map[string]string "Invalid form"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 413 {object} map[string]string "Request too large"
// @Failure 422 {object} model.ValidationError "Field errors"
// @Security BearerAuth
// @Router /prompts [post]
func (h *Handler) SubmitPrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxImageBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := model.SubmitPromptRequest{
		Text:       r.FormValue("text"),
		CategoryID: r.FormValue("categoryId"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		respondError(w, http.StatusBadRequest, "invalid image upload")
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid image upload")
			return
		}
		req.Image = &model.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	prompt, err := h.moderation.Submit(r.Context(), model.ClaimsFromContext(r.Context()), &req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, prompt)
}

// ToggleFavorite godoc
// @Summary Toggle favorite
// @Description Add or remove the prompt from the caller's favorites
// @Tags Prompts
// @Produce json
// @Param id path string true "Prompt ID"
// @Success 200 {object} storage.FavoriteResult
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /prompts/{id}/favorite [post]
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	res, err := h.moderation.ToggleFavorite(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// CopyPrompt godoc
// @Summary Record a copy
// @Description Increment the copy counter of a prompt
// @Tags Prompts
// @Produce json
// @Param id path string true "Prompt ID"
// @Success 200 {object} map[string]int "Updated copy count"
// @Router /prompts/{id}/copy [post]
func (h *Handler) CopyPrompt(w http.ResponseWriter, r *http.Request) {
	count, err := h.moderation.IncrementCopyCount(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"copiesCount": count})
}

// ListCategories godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} model.Category
// @Router /categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories.List(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// AdCodes godoc
// @Summary Ad placements
// @Description Map of placement id to ad markup
// @Tags Ads
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ads [get]
func (h *Handler) AdCodes(w http.ResponseWriter, r *http.Request) {
	ads, err := h.moderation.AdCodeMap(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ads)
}
