package docstore

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/models"
)

const maxSlugRunes = 50

// slugify derives a file-system-safe file stem from a display name: letters,
// digits, '-' and '_' are kept, everything else becomes '-', the result is
// lower-cased and cut to 50 runes.
func slugify(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(name) {
		if n == maxSlugRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
		n++
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// folderName accepts a single path segment: no separators, not "." or "..".
var folderName = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	name, _ := v.(string)
	if name == "" {
		return nil
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errors.New("must be a single folder name")
	}
	return nil
})

var notBlank = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// utf8Text rejects strings (or string lists) that are not valid UTF-8.
var utf8Text = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	var texts []string
	switch t := v.(type) {
	case string:
		texts = []string{t}
	case []string:
		texts = t
	}
	for _, s := range texts {
		if !utf8.ValidString(s) {
			return errors.New("must be valid UTF-8")
		}
	}
	return nil
})

func validateCreate(in *models.CreateInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name, notBlank, utf8Text),
		validation.Field(&in.Description, utf8Text),
		validation.Field(&in.Tags, utf8Text),
		validation.Field(&in.Folder, folderName),
	)
	return invalid(err)
}

func validateUpdate(in *models.UpdateInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name, notBlank, utf8Text),
		validation.Field(&in.Description, utf8Text),
		validation.Field(&in.Tags, utf8Text),
		validation.Field(&in.Folder, folderName),
	)
	return invalid(err)
}

func validateFolder(name string) error {
	return invalid(validation.Validate(name, validation.Required, folderName))
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
}
