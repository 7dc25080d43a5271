package frontmatter

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Header is the subset of metadata honoured when importing foreign Markdown.
// Every field is optional.
type Header struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Tags        []string  `yaml:"tags"`
	Created     time.Time `yaml:"created"`
}

// ParseLoose extracts an optional header from Markdown written by other tools.
// Missing delimiters or invalid YAML are not errors: the whole text becomes the
// body and the header is empty.
func ParseLoose(data []byte) (Header, string) {
	block, body, ok := split(data)
	if !ok {
		return Header{}, trimBlankLines(string(data))
	}
	var h Header
	if err := yaml.Unmarshal(block, &h); err != nil {
		return Header{}, trimBlankLines(string(data))
	}
	return h, body
}
