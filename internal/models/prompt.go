// Package models defines the domain types for PromptPad.
package models

import "time"

// DefaultFolder is the folder a prompt lives in when none was given.
const DefaultFolder = "uncategorized"

// IndexVersion is the current index.json format version.
const IndexVersion = 1

// Frontmatter is the metadata block stored at the top of every prompt file.
type Frontmatter struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string   `yaml:"tags" json:"tags"`
	Created     time.Time  `yaml:"created" json:"created"`
	UseCount    int        `yaml:"use_count" json:"use_count"`
	LastUsedAt  *time.Time `yaml:"last_used_at,omitempty" json:"last_used_at,omitempty"`
}

// Prompt is a fully loaded prompt: metadata plus body text.
type Prompt struct {
	Frontmatter
	Content string `json:"content"`
}

// PromptMetadata is the index projection of a prompt. It never carries the body.
type PromptMetadata struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Folder      string     `json:"folder,omitempty"`
	Tags        []string   `json:"tags"`
	FilePath    string     `json:"file_path"`
	UseCount    int        `json:"use_count"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Clone returns a copy that shares no slices or pointers with m.
func (m PromptMetadata) Clone() PromptMetadata {
	out := m
	out.Tags = append([]string{}, m.Tags...)
	if m.LastUsedAt != nil {
		t := *m.LastUsedAt
		out.LastUsedAt = &t
	}
	return out
}

// PromptIndex is the derived snapshot persisted as index.json.
type PromptIndex struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Prompts   []PromptMetadata `json:"prompts"`
	Folders   []string         `json:"folders"`
	Tags      []string         `json:"tags"`
}

// Clone returns a deep copy of the snapshot.
func (ix PromptIndex) Clone() PromptIndex {
	out := ix
	out.Prompts = make([]PromptMetadata, len(ix.Prompts))
	for i, p := range ix.Prompts {
		out.Prompts[i] = p.Clone()
	}
	out.Folders = append([]string{}, ix.Folders...)
	out.Tags = append([]string{}, ix.Tags...)
	return out
}

// CreateInput holds the fields accepted when creating a prompt.
type CreateInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content"`
	Folder      string   `json:"folder,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Created overrides the creation timestamp; zero means now.
	Created time.Time `json:"-"`
}

// UpdateInput holds a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Folder      *string   `json:"folder,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	// IfMatch, when set, must equal the checksum of the current file.
	IfMatch string `json:"-"`
}
