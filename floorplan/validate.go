package floorplan

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument wraps every import validation failure
var ErrInvalidDocument = errors.New("invalid document")

//go:embed schema/document.schema.json
var documentSchema []byte

// ValidateDocument checks raw JSON against the document schema and then
// checks cross references the schema cannot express.
func ValidateDocument(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// ParseDocument validates data and decodes it
func ParseDocument(data []byte) (Document, error) {
	if err := ValidateDocument(data); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkReferences(doc); err != nil {
		return Document{}, err
	}
	return doc.Clone(), nil
}

// checkReferences verifies ids are unique and every floor, room and
// corridor points at an existing parent.
func checkReferences(doc Document) error {
	var problems []string
	seen := make(map[string]bool)
	dup := func(kind, id string) {
		key := kind + "/" + id
		if seen[key] {
			problems = append(problems, fmt.Sprintf("duplicate %s id %q", kind, id))
		}
		seen[key] = true
	}

	buildings := make(map[string]bool)
	for _, b := range doc.Buildings {
		dup("building", b.ID)
		buildings[b.ID] = true
	}
	floors := make(map[string]bool)
	for _, f := range doc.Floors {
		dup("floor", f.ID)
		floors[f.ID] = true
		if !buildings[f.BuildingID] {
			problems = append(problems, fmt.Sprintf("floor %q references unknown building %q", f.ID, f.BuildingID))
		}
	}
	for _, r := range doc.Rooms {
		dup("room", r.ID)
		if !floors[r.FloorID] {
			problems = append(problems, fmt.Sprintf("room %q references unknown floor %q", r.ID, r.FloorID))
		}
	}
	for _, c := range doc.Corridors {
		dup("corridor", c.ID)
		if !floors[c.FloorID] {
			problems = append(problems, fmt.Sprintf("corridor %q references unknown floor %q", c.ID, c.FloorID))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}
	return nil
}
