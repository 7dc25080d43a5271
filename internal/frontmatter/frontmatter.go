// Package frontmatter converts prompt files to and from their structured form:
// a YAML metadata block between "---" lines followed by the free-form body.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/models"
)

// Delimiter opens and closes the metadata block.
const Delimiter = "---"

// Decode parses raw file contents into metadata and body.
//
// The text must start with a delimiter line (leading blank lines are
// tolerated), contain a matching closing delimiter line, and the block between
// them must carry a UUID id, a non-empty name and a created timestamp.
// The body is everything after the closing delimiter with surrounding blank
// lines removed.
func Decode(data []byte) (models.Frontmatter, string, error) {
	block, body, ok := split(data)
	if !ok {
		return models.Frontmatter{}, "", fmt.Errorf("%w: missing frontmatter delimiters", apperr.ErrMalformed)
	}

	var fm models.Frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return models.Frontmatter{}, "", fmt.Errorf("%w: %w", apperr.ErrMalformed, err)
	}
	if err := validate(&fm); err != nil {
		return models.Frontmatter{}, "", err
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	return fm, body, nil
}

// Encode serializes metadata and body into the on-disk text form.
// The body is written verbatim after a blank line.
//
// Strings that the plain or block YAML styles would not reproduce exactly
// (surrounding whitespace, line breaks, control characters) are written
// double-quoted. The result is decoded again before it is returned; metadata
// that would not come back unchanged fails with ErrInvalidInput.
func Encode(fm models.Frontmatter, body string) ([]byte, error) {
	block, err := yaml.Marshal(metadataNode(fm))
	if err != nil {
		return nil, fmt.Errorf("%w: frontmatter: %s", apperr.ErrInvalidInput, err.Error())
	}

	var buf bytes.Buffer
	buf.Grow(len(block) + len(body) + 16)
	buf.WriteString(Delimiter + "\n")
	buf.Write(block)
	buf.WriteString(Delimiter + "\n\n")
	buf.WriteString(body)
	out := buf.Bytes()

	got, _, err := Decode(out)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata cannot be stored: %s", apperr.ErrInvalidInput, err.Error())
	}
	if !Equal(got, fm) {
		return nil, fmt.Errorf("%w: metadata does not survive encoding", apperr.ErrInvalidInput)
	}
	return out, nil
}

// Equal reports whether two metadata records are the same. Timestamps are
// compared as instants and a nil tag list equals an empty one.
func Equal(a, b models.Frontmatter) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Description != b.Description || a.UseCount != b.UseCount {
		return false
	}
	if !a.Created.Equal(b.Created) {
		return false
	}
	if (a.LastUsedAt == nil) != (b.LastUsedAt == nil) {
		return false
	}
	if a.LastUsedAt != nil && !a.LastUsedAt.Equal(*b.LastUsedAt) {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}

func metadataNode(fm models.Frontmatter) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, value *yaml.Node) {
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}

	add("id", textNode(fm.ID))
	add("name", textNode(fm.Name))
	if fm.Description != "" {
		add("description", textNode(fm.Description))
	}
	tags := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, t := range fm.Tags {
		tags.Content = append(tags.Content, textNode(t))
	}
	add("tags", tags)
	add("created", timeNode(fm.Created))
	add("use_count", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(fm.UseCount)})
	if fm.LastUsedAt != nil {
		add("last_used_at", timeNode(*fm.LastUsedAt))
	}
	return m
}

func textNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if needsQuotes(s) {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func timeNode(t time.Time) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: t.Format(time.RFC3339Nano)}
}

// needsQuotes reports whether s has surrounding whitespace or any rune that
// is not printable (line breaks, tabs, control characters).
func needsQuotes(s string) bool {
	if s == "" || s != strings.TrimSpace(s) {
		return true
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

func validate(fm *models.Frontmatter) error {
	if fm.ID == "" {
		return fmt.Errorf("%w: id is required", apperr.ErrMalformed)
	}
	if _, err := uuid.Parse(fm.ID); err != nil {
		return fmt.Errorf("%w: id %q: %w", apperr.ErrMalformed, fm.ID, err)
	}
	if strings.TrimSpace(fm.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrMalformed)
	}
	if fm.Created.IsZero() {
		return fmt.Errorf("%w: created is required", apperr.ErrMalformed)
	}
	if fm.UseCount < 0 {
		return fmt.Errorf("%w: use_count is negative", apperr.ErrMalformed)
	}
	return nil
}

// split separates the YAML block (between the leading delimiter lines) from
// the body. ok is false when either delimiter line is missing.
func split(data []byte) (block []byte, body string, ok bool) {
	text := strings.TrimLeft(string(data), "\r\n")

	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, "\r") != Delimiter {
		return nil, "", false
	}

	offset := 0
	for offset <= len(rest) {
		line, tail, more := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, "\r") == Delimiter {
			return []byte(rest[:offset]), trimBlankLines(tail), true
		}
		if !more {
			break
		}
		offset += len(line) + 1
	}
	return nil, "", false
}

// trimBlankLines drops leading and trailing lines that contain only whitespace.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
