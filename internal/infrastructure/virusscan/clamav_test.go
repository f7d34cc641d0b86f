package virusscan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

func TestClamAVClient_Scan(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []ScanError
	}{
		{
			name:   "clean",
			status: http.StatusOK,
			body:   `{"success":true,"data":{"result":[{"name":"signs.csv","is_infected":false,"viruses":[]}]}}`,
			want:   nil,
		},
		{
			name:   "infected",
			status: http.StatusOK,
			body:   `{"success":true,"data":{"result":[{"name":"ok.csv","is_infected":false,"viruses":[]},{"name":"eicar.csv","is_infected":true,"viruses":["Eicar-Test-Signature"]}]}}`,
			want:   []ScanError{{Detail: "eicar.csv is infected", Viruses: []string{"Eicar-Test-Signature"}}},
		},
		{
			name:   "service error",
			status: http.StatusInternalServerError,
			body:   `{}`,
			want:   []ScanError{{Detail: "Status code not 200", Viruses: []string{"ClamAV response not OK"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotFile string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				if err := r.ParseMultipartForm(1 << 20); err == nil {
					if fh := r.MultipartForm.File["FILES"]; len(fh) > 0 {
						gotFile = fh[0].Filename
					}
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClamAVClient(config.ClamAVConfig{BaseURL: srv.URL}, logger.NewNop())
			got, err := c.Scan(context.Background(), []File{{Name: "signs.csv", Data: []byte("id;code\n")}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "/api/v1/scan", gotPath)
			assert.Equal(t, "signs.csv", gotFile)
		})
	}
}

func TestClamAVClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClamAVClient(config.ClamAVConfig{BaseURL: url}, logger.NewNop())
	_, err := c.Scan(context.Background(), []File{{Name: "a.csv"}})
	assert.True(t, errors.IsKind(err, errors.KindVirusScanUnavailable))
}
