package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/promptservice"
	"github.com/starford/promptpad/internal/search"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *promptservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *promptservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListPrompts handles GET /api/prompts.
//
//	@Summary		List prompts, most used first
//	@Tags			prompts
//	@Produce		json
//	@Param			folder	query		string	false	"Filter by folder"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			q		query		string	false	"Name or description substring"
//	@Success		200		{object}	PromptListResponse
//	@Security		BearerAuth
//	@Router			/prompts [get]
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.ListPrompts(r.Context(), search.Filter{
		Folder: q.Get("folder"),
		Tag:    q.Get("tag"),
		Query:  q.Get("q"),
	})
	if err != nil {
		writeError(w, "list prompts", err)
		return
	}
	writeJSON(w, http.StatusOK, PromptListResponse{Prompts: items, Total: len(items)})
}

// CreatePrompt handles POST /api/prompts.
//
//	@Summary		Create a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePromptRequest	true	"Prompt to create"
//	@Success		201		{object}	models.PromptMetadata
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [post]
func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req CreatePromptRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	m, err := h.svc.CreatePrompt(r.Context(), req)
	if err != nil {
		writeError(w, "create prompt", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetPrompt handles GET /api/prompts/{id}.
//
//	@Summary		Get a prompt with its body
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt id"
//	@Success		200	{object}	PromptDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [get]
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPrompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get prompt", err)
		return
	}
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	writeJSON(w, http.StatusOK, p)
}

// GetContent handles GET /api/prompts/{id}/content.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := h.svc.PromptContent(r.Context(), id)
	if err != nil {
		writeError(w, "get content", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{ID: id, Content: body})
}

// UpdatePrompt handles PATCH /api/prompts/{id}.
//
//	@Summary		Partially update a prompt with optimistic concurrency
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Prompt id"
//	@Param			If-Match	header		string				false	"SHA-256 checksum from GET"
//	@Param			body		body		UpdatePromptRequest	true	"Fields to change"
//	@Success		200			{object}	models.PromptMetadata
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [patch]
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	req.IfMatch = r.Header.Get("If-Match")

	m, err := h.svc.UpdatePrompt(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeletePrompt handles DELETE /api/prompts/{id}.
//
//	@Summary		Delete a prompt
//	@Tags			prompts
//	@Param			id	path	string	true	"Prompt id"
//	@Success		204	"Prompt deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [delete]
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePrompt(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordUsage handles POST /api/prompts/{id}/usage.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.RecordUsage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "record usage", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Paste handles POST /api/prompts/{id}/paste.
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Paste(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "paste", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CaptureFocus handles POST /api/focus/capture.
func (h *Handler) CaptureFocus(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.CaptureTarget(r.Context())
	if err != nil {
		writeError(w, "capture focus", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.ListFolders(r.Context())
	if err != nil {
		writeError(w, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: folders})
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeJSON(w, r, 1<<10, &req) {
		return
	}
	if err := h.svc.CreateFolder(r.Context(), req.Name); err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// GetIndex handles GET /api/index.
func (h *Handler) GetIndex(w http.ResponseWriter, r *http.Request) {
	ix, err := h.svc.GetIndex(r.Context())
	if err != nil {
		writeError(w, "get index", err)
		return
	}
	writeJSON(w, http.StatusOK, ix)
}

// RebuildIndex handles POST /api/index/rebuild.
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	ix, err := h.svc.RebuildIndex(r.Context())
	if err != nil {
		writeError(w, "rebuild index", err)
		return
	}
	writeJSON(w, http.StatusOK, ix)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSettings(r.Context())
	if err != nil {
		writeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings handles PUT /api/settings. The body is the full record.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if !decodeJSON(w, r, 1<<16, &req) {
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Search handles GET /api/search.
//
//	@Summary		Case-insensitive literal search in prompt bodies
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	false	"Text to find; empty matches every prompt"
//	@Success		200	{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results, err := h.svc.SearchContent(r.Context(), q)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: results})
}
