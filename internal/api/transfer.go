package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/starford/promptpad/internal/promptservice"
)

const maxUploadBytes = 5 << 20

// importName validates an uploaded file name: a plain .md name without
// directory parts.
func importName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Base(filepath.Clean(strings.ReplaceAll(name, `\`, "/")))
	if cleaned == "." || cleaned == ".." || cleaned == "/" {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !strings.EqualFold(filepath.Ext(cleaned), ".md") {
		return "", fmt.Errorf("only .md files can be imported: %s", name)
	}
	return cleaned, nil
}

// ImportMarkdown handles POST /api/import (multipart/form-data, field "file",
// optional field "folder").
func (h *Handler) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := importName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	m, err := h.svc.ImportMarkdown(r.Context(), name, raw, r.FormValue("folder"))
	if err != nil {
		writeError(w, "import markdown", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ImportBulk handles POST /api/import/bulk with a JSON array of prompts.
// Individual failures are reported in the result, not as an error status.
func (h *Handler) ImportBulk(w http.ResponseWriter, r *http.Request) {
	var items []promptservice.BulkItem
	if !decodeJSON(w, r, maxUploadBytes, &items) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ImportBulk(r.Context(), items))
}

// Export handles GET /api/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.svc.Export(r.Context())
	if err != nil {
		writeError(w, "export", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="promptpad-export.json"`)
	writeJSON(w, http.StatusOK, ExportResponse{Prompts: prompts})
}
