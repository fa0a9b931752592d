package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/techsite/internal/errors"
	"github.com/pribylovaa/techsite/internal/models"
)

func (h *Handlers) ListBlogs(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.conn(r).site.ListBlogs(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, blogs)
}

// GetBlog отдаёт пост вместе с деревом комментариев.
func (h *Handlers) GetBlog(w http.ResponseWriter, r *http.Request) {
	d, err := h.conn(r).site.BlogWithComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in models.CreateCommentRequest
	if err := decodeStrict(w, r, &in); err != nil {
		debugDecode(r, err)
		apierrors.WriteError(w, r, err)
		return
	}

	c, err := h.conn(r).site.CreateComment(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateCommentRequest
	if err := decodeStrict(w, r, &in); err != nil {
		debugDecode(r, err)
		apierrors.WriteError(w, r, err)
		return
	}

	c, err := h.conn(r).site.UpdateComment(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.conn(r).site.DeleteComment(r.Context(), chi.URLParam(r, "id")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Settings(w http.ResponseWriter, r *http.Request) {
	s, err := h.conn(r).site.Settings(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	var in models.ContactMessage
	if err := decodeStrict(w, r, &in); err != nil {
		debugDecode(r, err)
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.conn(r).site.SendContact(r.Context(), in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
