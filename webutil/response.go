package webutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
)

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorBody{Error: message})
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondWithAttachment sends data as a file download with an explicit length
// and a content hash as ETag.
func RespondWithAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	h := w.Header()
	h.Set(HeaderContentType, contentType)
	h.Set(HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	h.Set(HeaderContentLength, strconv.Itoa(len(data)))
	h.Set(HeaderETag, fmt.Sprintf(`"%s"`, ContentHash(data)))
	h.Set(HeaderCacheControl, "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HasResponseWriterSentHeader reports whether a status line was already written.
func HasResponseWriterSentHeader(w http.ResponseWriter) bool {
	if ww, ok := w.(middleware.WrapResponseWriter); ok {
		return ww.Status() != 0
	}
	return false
}
