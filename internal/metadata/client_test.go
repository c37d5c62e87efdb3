package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/config"
	"docvault/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(config.MetadataConfig{BaseURL: srv.URL, TimeoutSec: 2})
	require.NoError(t, err)
	return c, srv
}

func TestHTTPClient_Create(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody model.Metadata

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})

	md := &model.Metadata{DocumentID: "doc-1", Title: "Report", Author: "alice"}
	err := c.Create(context.Background(), md)

	assert.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/metadata/", gotPath)
	assert.Equal(t, "doc-1", gotBody.DocumentID)
	assert.Equal(t, "Report", gotBody.Title)
}

func TestHTTPClient_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/metadata/doc-1", r.URL.Path)
			json.NewEncoder(w).Encode(model.Metadata{DocumentID: "doc-1", Title: "Report"})
		})

		md, err := c.Get(context.Background(), "doc-1")

		assert.NoError(t, err)
		assert.Equal(t, "Report", md.Title)
	})

	t.Run("not found", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		md, err := c.Get(context.Background(), "missing")

		assert.ErrorIs(t, err, ErrMetadataNotFound)
		assert.Nil(t, md)
	})

	t.Run("server error", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := c.Get(context.Background(), "doc-1")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestHTTPClient_Update(t *testing.T) {
	var gotMethod, gotPath string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	err := c.Update(context.Background(), &model.Metadata{DocumentID: "doc-1", Title: "Renamed"})

	assert.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metadata/doc-1", gotPath)
}

func TestHTTPClient_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		})

		assert.NoError(t, c.Delete(context.Background(), "doc-1"))
	})

	t.Run("absent record is not an error", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		assert.NoError(t, c.Delete(context.Background(), "already-gone"))
	})
}

func TestHTTPClient_List(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "5", r.URL.Query().Get("skip"))
		json.NewEncoder(w).Encode([]model.Metadata{{DocumentID: "a"}, {DocumentID: "b"}})
	})

	items, err := c.List(context.Background(), 10, 5)

	assert.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(config.MetadataConfig{})
	assert.Error(t, err)
}
