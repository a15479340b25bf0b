// Package schema validates handler payloads against their declared shape.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oldominion/indexer/internal/model"
)

// Schema declares the shape a handler's payload must have. A violation is
// an extraction bug, never an expected runtime outcome.
type Schema struct {
	Required []string
}

// ViolationError reports which declared fields an extraction failed to
// produce.
type ViolationError struct {
	Missing []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("payload missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Validate checks the payload against the schema. Required fields must be
// present and non-nil; a non-empty string requirement is deliberately not
// imposed, an empty string is a legitimate extracted value.
func (s Schema) Validate(p model.Payload) error {
	var missing []string
	for _, field := range s.Required {
		v, ok := p[field]
		if !ok || v == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ViolationError{Missing: missing}
	}
	return nil
}
