// Package search answers body-content and metadata queries over the prompt index.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/models"
)

// DefaultWorkers bounds concurrent body reads when no limit is configured.
const DefaultWorkers = 8

// Index provides the current index snapshot.
type Index interface {
	Get() (models.PromptIndex, error)
}

// Bodies reads a prompt body by id.
type Bodies interface {
	Content(id string) (string, error)
}

// Searcher is stateless apart from its collaborators.
type Searcher struct {
	index   Index
	bodies  Bodies
	workers int
	logger  *slog.Logger
}

// New creates a Searcher. workers <= 0 means DefaultWorkers.
func New(index Index, bodies Bodies, workers int, logger *slog.Logger) *Searcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Searcher{index: index, bodies: bodies, workers: workers, logger: logger}
}

// Compile turns query into a case-insensitive literal pattern.
func Compile(query string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return nil, fmt.Errorf("%w: search pattern: %w", apperr.ErrInvalidInput, err)
	}
	return re, nil
}

// SearchContent returns the indexed prompts whose body contains query,
// case-insensitively and literally, in index order. Bodies that cannot be read
// are skipped. An empty query matches every prompt.
func (s *Searcher) SearchContent(ctx context.Context, query string) ([]models.PromptMetadata, error) {
	re, err := Compile(query)
	if err != nil {
		return nil, err
	}
	ix, err := s.index.Get()
	if err != nil {
		return nil, err
	}

	hits := make([]bool, len(ix.Prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range ix.Prompts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			body, err := s.bodies.Content(p.ID)
			if err != nil {
				s.logger.Debug("search: skip unreadable", slog.String("id", p.ID), slog.String("error", err.Error()))
				return nil
			}
			hits[i] = re.MatchString(body)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []models.PromptMetadata{}
	for i, hit := range hits {
		if hit {
			out = append(out, ix.Prompts[i])
		}
	}
	return out, nil
}

// Filter narrows ListPrompts. Zero fields match everything.
type Filter struct {
	Folder string
	Tag    string
	// Query is a case-insensitive substring of name or description.
	Query string
}

// ListPrompts filters the index and orders the result by use count, most
// used first, then by name.
func (s *Searcher) ListPrompts(f Filter) ([]models.PromptMetadata, error) {
	ix, err := s.index.Get()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := []models.PromptMetadata{}
	for _, p := range ix.Prompts {
		if f.Folder != "" && p.Folder != f.Folder {
			continue
		}
		if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UseCount != out[j].UseCount {
			return out[i].UseCount > out[j].UseCount
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
