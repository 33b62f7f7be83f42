package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/auth"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/content"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/handlers"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/presence"
	ws "github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/websocket"
)

func setup(t *testing.T) (*gin.Engine, *content.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := content.NewMemoryStore()
	registry := presence.NewRegistry(store)
	hub := ws.NewHub(registry, store)
	tokens := auth.NewTokenService("test-secret")

	r := gin.New()
	api := r.Group("/api")
	handlers.SetupRoutes(api, store, hub, tokens)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetSpace(t *testing.T) {
	r, _ := setup(t)

	w := doJSON(t, r, http.MethodPost, "/api/spaces", gin.H{
		"title":                "design board",
		"default_content_type": "whiteboard",
		"project_id":           uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var space models.Space
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &space))
	assert.Equal(t, "design board", space.Title)
	assert.Equal(t, models.ContentTypeWhiteboard, space.DefaultContentType)

	w = doJSON(t, r, http.MethodGet, "/api/spaces/"+space.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSpaceValidation(t *testing.T) {
	r, _ := setup(t)

	w := doJSON(t, r, http.MethodPost, "/api/spaces", gin.H{"default_content_type": "text"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "title is required")

	w = doJSON(t, r, http.MethodPost, "/api/spaces", gin.H{"title": "x", "default_content_type": "spreadsheet"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown content type")
}

func TestGetUnknownSpace(t *testing.T) {
	r, _ := setup(t)

	w := doJSON(t, r, http.MethodGet, "/api/spaces/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/spaces/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchiveSpace(t *testing.T) {
	r, store := setup(t)

	space := &models.Space{Title: "old board"}
	require.NoError(t, store.CreateSpace(context.Background(), space))

	w := doJSON(t, r, http.MethodPost, "/api/spaces/"+space.ID.String()+"/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)

	loaded, err := store.LoadSpace(context.Background(), space.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Archived)
}

func TestGetContentAndVersions(t *testing.T) {
	r, store := setup(t)
	ctx := context.Background()

	space := &models.Space{Title: "doc", DefaultContentType: models.ContentTypeText}
	require.NoError(t, store.CreateSpace(ctx, space))
	require.NoError(t, store.Autosave(ctx, space.ID, models.ContentSnapshot{
		ContentType: models.ContentTypeText,
		TextContent: "body",
	}))
	_, err := store.SaveVersion(ctx, space.ID, models.ContentSnapshot{
		ContentType: models.ContentTypeText,
		TextContent: "saved body",
	}, "checkpoint", true, uuid.New())
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/api/spaces/"+space.ID.String()+"/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.ContentSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, "saved body", snapshot.TextContent)

	w = doJSON(t, r, http.MethodGet, "/api/spaces/"+space.ID.String()+"/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var versions []models.ContentVersion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, "checkpoint", versions[0].EditSummary)
}

func TestStats(t *testing.T) {
	r, store := setup(t)

	require.NoError(t, store.CreateSpace(context.Background(), &models.Space{Title: "a"}))
	require.NoError(t, store.CreateSpace(context.Background(), &models.Space{Title: "b"}))

	w := doJSON(t, r, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats["space_count"])
	assert.Equal(t, 0, stats["online_count"])
}
