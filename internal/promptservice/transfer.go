package promptservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/promptpad/internal/frontmatter"
	"github.com/starford/promptpad/internal/models"
)

// BulkItem is one entry of a bulk JSON import.
type BulkItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content"`
	Folder      string   `json:"folder,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ExportedPrompt is one prompt in an export document.
type ExportedPrompt struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content"`
	Folder      string     `json:"folder,omitempty"`
	Tags        []string   `json:"tags"`
	UseCount    int        `json:"use_count"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// ImportMarkdown creates a prompt from a Markdown file written by any tool.
// A frontmatter block is optional; its name, description, tags and created
// fields are kept. Without a name the file name (minus .md) is used. The
// prompt always gets a fresh id.
func (s *Service) ImportMarkdown(ctx context.Context, fileName string, raw []byte, folder string) (models.PromptMetadata, error) {
	h, body := frontmatter.ParseLoose(raw)
	name := strings.TrimSpace(h.Name)
	if name == "" {
		base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
		if ext := path.Ext(base); strings.EqualFold(ext, ".md") {
			base = strings.TrimSuffix(base, ext)
		}
		name = strings.TrimSpace(base)
	}
	return s.CreatePrompt(ctx, models.CreateInput{
		Name:        name,
		Description: h.Description,
		Content:     body,
		Folder:      folder,
		Tags:        h.Tags,
		Created:     h.Created,
	})
}

// ImportBulk creates one prompt per item. A failing item is recorded in the
// result and never stops the batch.
func (s *Service) ImportBulk(ctx context.Context, items []BulkItem) ImportResult {
	res := ImportResult{Errors: []string{}}
	for _, it := range items {
		_, err := s.CreatePrompt(ctx, models.CreateInput{
			Name:        it.Name,
			Description: it.Description,
			Content:     it.Content,
			Folder:      it.Folder,
			Tags:        it.Tags,
		})
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("failed to import %q: %v", it.Name, err))
			continue
		}
		res.Success++
	}
	return res
}

// Export returns every indexed prompt together with its body. Prompts whose
// file cannot be read are skipped and logged.
func (s *Service) Export(ctx context.Context) ([]ExportedPrompt, error) {
	ix, err := s.index.Get()
	if err != nil {
		return nil, err
	}
	out := make([]ExportedPrompt, 0, len(ix.Prompts))
	for _, m := range ix.Prompts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := s.store.Content(m.ID)
		if err != nil {
			s.logger.Warn("export: skip unreadable", slog.String("id", m.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, ExportedPrompt{
			Name:        m.Name,
			Description: m.Description,
			Content:     body,
			Folder:      m.Folder,
			Tags:        m.Tags,
			UseCount:    m.UseCount,
			CreatedAt:   m.CreatedAt,
			LastUsedAt:  m.LastUsedAt,
		})
	}
	return out, nil
}
