package webutil

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h AppHandler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	MakeHandler(h)(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMakeHandler_HTTPError(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		return ErrNotFound("Ebook not found")
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ContentTypeJSONUTF8, rec.Header().Get(HeaderContentType))
	assert.Equal(t, ErrorBody{Error: "Ebook not found"}, decodeError(t, rec))
}

func TestMakeHandler_Details(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		return NewHTTPErrorWrap(http.StatusInternalServerError, "Failed to generate PDF", errors.New("boom")).WithDetails("boom")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to generate PDF","details":"boom"}`, rec.Body.String())
}

func TestMakeHandler_NoRows(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		return fmt.Errorf("page not found: %w", sql.ErrNoRows)
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNotFound, decodeError(t, rec).Error)
}

func TestMakeHandler_Unhandled(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("disk on fire")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, msgInternalServer, body.Error)
	assert.Empty(t, body.Details)
}

func TestMakeHandler_ErrorAfterWrite(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusAccepted)
		return errors.New("late")
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRespondWithAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	data := []byte("%PDF-1.4 body")

	RespondWithAttachment(rec, "marketing-prompts.pdf", "application/pdf", data)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(HeaderContentType))
	assert.Equal(t, `attachment; filename="marketing-prompts.pdf"`, rec.Header().Get(HeaderContentDisposition))
	assert.Equal(t, "13", rec.Header().Get(HeaderContentLength))
	assert.Equal(t, `"`+ContentHash(data)+`"`, rec.Header().Get(HeaderETag))
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
}
