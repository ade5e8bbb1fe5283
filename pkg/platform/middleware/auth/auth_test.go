package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "harvestcert/pkg/domain"
	"harvestcert/pkg/requestcontext"
)

type staticValidator map[string]id.Identity

func (v staticValidator) ValidateToken(token string) (id.Identity, error) {
	if who, ok := v[token]; ok {
		return who, nil
	}
	return "", errors.New("unknown token")
}

func TestRequireCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var caller id.Identity
	h := RequireCaller(staticValidator{"tok-bob": "bob"}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller id.Identity
	}{
		{"valid token", "Bearer tok-bob", http.StatusNoContent, "bob"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic tok-bob", http.StatusUnauthorized, ""},
		{"empty token", "Bearer   ", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer tok-eve", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller = ""
			req := httptest.NewRequest(http.MethodPost, "/harvests", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCaller, caller)
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, "unauthorized", body["error"])
			}
		})
	}
}
