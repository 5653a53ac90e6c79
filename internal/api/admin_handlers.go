package api

import (
	"net/http"

	"github.com/prompt-gallery/internal/model"
)

// ApprovePrompt godoc
// @Summary Approve a prompt
// @Tags Admin
// @Produce json
// @Param id path string true "Prompt ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /admin/prompts/{id}/approve [post]
func (h *Handler) ApprovePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.moderation.Approve(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// RejectPrompt godoc
// @Summary Reject a prompt
// @Description Rejecting removes the prompt and its uploaded image
// @Tags Admin
// @Produce json
// @Param id path string true "Prompt ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /admin/prompts/{id}/reject [post]
func (h *Handler) RejectPrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.moderation.Reject(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// DeletePrompt godoc
// @Summary Delete a prompt
// @Tags Admin
// @Param id path string true "Prompt ID"
// @Success 204
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /admin/prompts/{id} [delete]
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.moderation.Delete(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body model.CategoryRequest true "Category"
// @Success 201 {object} model.Category
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 422 {object} model.ValidationError "Field errors"
// @Security BearerAuth
// @Router /admin/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.moderation.CreateCategory(r.Context(), model.ClaimsFromContext(r.Context()), &req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Description Updating a missing category is a no-op and returns 204
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param request body model.CategoryRequest true "Category"
// @Success 200 {object} model.Category
// @Success 204
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 422 {object} model.ValidationError "Field errors"
// @Security BearerAuth
// @Router /admin/categories/{id} [put]
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.moderation.UpdateCategory(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id"), &req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if category == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Prompts in the category move to Uncategorized
// @Tags Admin
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} map[string]int64 "Number of reassigned prompts"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 422 {object} model.ValidationError "The fallback category cannot be deleted"
// @Security BearerAuth
// @Router /admin/categories/{id} [delete]
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	reassigned, err := h.moderation.DeleteCategory(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"reassigned": reassigned})
}

// UpdateAdCode godoc
// @Summary Update ad markup
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Placement ID"
// @Param request body model.AdCodeRequest true "Ad markup"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /admin/ads/{id} [put]
func (h *Handler) UpdateAdCode(w http.ResponseWriter, r *http.Request) {
	var req model.AdCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.moderation.UpdateAdCode(r.Context(), model.ClaimsFromContext(r.Context()), r.PathValue("id"), req.Code); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
