package ports

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalUnmarshal(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		body    string
		wantSet bool
		want    *uuid.UUID
	}{
		{"absent", `{}`, false, nil},
		{"null", `{"assigneeId": null}`, true, nil},
		{"value", `{"assigneeId": "` + id.String() + `"}`, true, &id},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.wantSet, req.AssigneeID.Set)
			assert.Equal(t, tt.want, req.AssigneeID.Value)
		})
	}

	var req UpdateTaskRequest
	assert.Error(t, json.Unmarshal([]byte(`{"assigneeId": "not-a-uuid"}`), &req))
}

func TestOptionalHelpers(t *testing.T) {
	some := Some(3)
	assert.True(t, some.Set)
	require.NotNil(t, some.Value)
	assert.Equal(t, 3, *some.Value)

	null := Null[int]()
	assert.True(t, null.Set)
	assert.Nil(t, null.Value)
}
