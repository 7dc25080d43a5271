package api

import (
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/promptservice"
)

// CreatePromptRequest is the request body for creating a prompt.
type CreatePromptRequest = models.CreateInput

// UpdatePromptRequest is the request body for a partial prompt update.
// Omitted fields are left unchanged; "folder": "" moves the prompt back to
// the default folder.
type UpdatePromptRequest = models.UpdateInput

// PromptDetail is a prompt with body and checksum (aliased from the domain layer).
type PromptDetail = promptservice.PromptDetail

// PromptListResponse wraps prompt listings.
type PromptListResponse struct {
	Prompts []models.PromptMetadata `json:"prompts" validate:"required"`
	Total   int                     `json:"total" example:"42" validate:"required"`
}

// ContentResponse carries a prompt body.
type ContentResponse struct {
	ID      string `json:"id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// FolderListResponse wraps folder names.
type FolderListResponse struct {
	Folders []string `json:"folders" validate:"required"`
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name string `json:"name" example:"work" validate:"required"`
}

// SearchResponse wraps content search hits.
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []models.PromptMetadata `json:"results" validate:"required"`
}

// ExportResponse is the export document.
type ExportResponse struct {
	Prompts []promptservice.ExportedPrompt `json:"prompts" validate:"required"`
}
