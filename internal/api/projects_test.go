package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promotesh/worklog/internal/project"
)

func TestProjectCRUD(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/projects",
		`{"title":"Search revamp","description":"Rework the search stack","startDate":"2026-08-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Search revamp", created.Title)
	require.NotNil(t, created.StartDate)

	rec = f.do(http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Projects []project.Project `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Projects, 1)

	// Update replaces the record; omitted optional fields are cleared.
	rec = f.do(http.MethodPut, "/api/projects/"+created.ID.String(),
		`{"title":"Search revamp v2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Search revamp v2", updated.Title)
	assert.Nil(t, updated.StartDate)

	rec = f.do(http.MethodDelete, "/api/projects/"+created.ID.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestProjectValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing title", body: `{"description":"x"}`},
		{name: "bad start date", body: `{"title":"x","startDate":"August 1st"}`},
		{name: "bad end date", body: `{"title":"x","endDate":"2026-13-40"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(http.MethodPost, "/api/projects", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestProjectNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New().String()
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/projects/"+id, `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/projects/"+id, "").Code)
}
