package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemeetoffline/server/internal/audit"
)

type memLogStore struct {
	entries []*audit.Entry
}

func (m *memLogStore) Insert(_ context.Context, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func TestRecordClientLog(t *testing.T) {
	store := &memLogStore{}
	h := NewLogsHandler(audit.NewRecorder(store, zerolog.Nop()), "test")

	body := `{"origin":"web","type":"error","message":"<b>boom</b>"}`
	r := httptest.NewRequest(http.MethodPost, "/log", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Record(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "web", store.entries[0].Origin)
	// markup in client-supplied text is stripped before persisting
	assert.Equal(t, "boom", store.entries[0].Message)
	assert.False(t, store.entries[0].CreatedAt.IsZero())

	var echoed audit.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echoed))
	assert.Equal(t, "error", echoed.Type)
}

func TestRecordClientLogRejectsMalformedBody(t *testing.T) {
	h := NewLogsHandler(audit.NewRecorder(&memLogStore{}, zerolog.Nop()), "test")

	for _, body := range []string{`not json`, `{"origin":"web"}`, `{}`} {
		r := httptest.NewRequest(http.MethodPost, "/log", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()
		h.Record(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
