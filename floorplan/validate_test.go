package floorplan

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	data, err := json.Marshal(sampleDocument())
	require.NoError(t, err)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Len(t, doc.Rooms, 3)
	assert.Len(t, doc.Corridors, 2)
}

func TestParseDocumentRejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		mention string
	}{
		{"empty", ``, "empty input"},
		{"not json", `{oops`, ""},
		{"wrong top-level type", `[]`, ""},
		{"zero width room", `{"rooms":[{"id":"r","floorId":"f","x":0,"y":0,"width":0,"height":40}]}`, "width"},
		{"one point corridor", `{"corridors":[{"id":"c","floorId":"f","points":[{"x":0,"y":0}]}]}`, "points"},
		{"unknown device type", `{"devices":[{"id":"d","type":"toaster"}]}`, "type"},
		{"room on unknown floor", `{"rooms":[{"id":"r","floorId":"f","x":0,"y":0,"width":60,"height":40}]}`, "unknown floor"},
		{"floor on unknown building", `{"floors":[{"id":"f","buildingId":"b"}]}`, "unknown building"},
		{"duplicate building", `{"buildings":[{"id":"b","name":"x"},{"id":"b","name":"y"}]}`, "duplicate building"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument), "error %v should wrap ErrInvalidDocument", err)
			if tt.mention != "" {
				assert.True(t, strings.Contains(err.Error(), tt.mention), "error %q should mention %q", err, tt.mention)
			}
		})
	}
}

func TestValidateDocumentAcceptsNullCollections(t *testing.T) {
	assert.NoError(t, ValidateDocument([]byte(`{"buildings":null,"rooms":[]}`)))
}
