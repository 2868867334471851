package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want BuildInfo
	}{
		{
			name: "with all values",
			info: BuildInfo{Version: "0.1.0", GitCommit: "abc123def456", BuildDate: "2026-01-28T12:00:00Z"},
			want: BuildInfo{Version: "0.1.0", GitCommit: "abc123def456", BuildDate: "2026-01-28T12:00:00Z"},
		},
		{
			name: "with defaults",
			want: BuildInfo{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
		{
			name: "with partial values",
			info: BuildInfo{Version: "1.2.3"},
			want: BuildInfo{Version: "1.2.3", GitCommit: "unknown", BuildDate: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			VersionHandler(tt.info).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				Status string    `json:"status"`
				Data   BuildInfo `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			tt.want.GoVersion = runtime.Version()
			assert.Equal(t, "success", body.Status)
			assert.Equal(t, tt.want, body.Data)
		})
	}
}
