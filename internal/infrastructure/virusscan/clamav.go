// Package virusscan submits uploaded files to a ClamAV REST service.
package virusscan

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// File is one upload to scan.
type File struct {
	Name string
	Data []byte
}

// ScanError describes one rejected file.
type ScanError struct {
	Detail  string   `json:"detail"`
	Viruses []string `json:"viruses"`
}

type scanResponse struct {
	Data struct {
		Result []struct {
			Name       string   `json:"name"`
			IsInfected bool     `json:"is_infected"`
			Viruses    []string `json:"viruses"`
		} `json:"result"`
	} `json:"data"`
}

type ClamAVClient struct {
	httpClient *resty.Client
	apiVersion string
	logger     logger.Interface
}

func NewClamAVClient(cfg config.ClamAVConfig, log logger.Interface) *ClamAVClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1"
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &ClamAVClient{httpClient: client, apiVersion: apiVersion, logger: log}
}

// Scan returns the infected files. A non-200 answer is reported as a single
// scan error; only transport failures return an error.
func (c *ClamAVClient) Scan(ctx context.Context, files []File) ([]ScanError, error) {
	req := c.httpClient.R().SetContext(ctx)
	for _, f := range files {
		req.SetFileReader("FILES", f.Name, bytes.NewReader(f.Data))
	}
	if len(files) == 0 {
		req.SetMultipartFormData(map[string]string{})
	}

	var body scanResponse
	resp, err := req.
		SetResult(&body).
		Post(fmt.Sprintf("/api/%s/scan", c.apiVersion))
	if err != nil {
		c.logger.Errorw("clamav request failed", "error", err)
		return nil, errors.New(errors.KindVirusScanUnavailable, "virus scanner unreachable", err.Error())
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Warnw("clamav returned non-200", "status_code", resp.StatusCode())
		return []ScanError{{Detail: "Status code not 200", Viruses: []string{"ClamAV response not OK"}}}, nil
	}

	var scanErrors []ScanError
	for _, r := range body.Data.Result {
		if r.IsInfected {
			scanErrors = append(scanErrors, ScanError{Detail: r.Name + " is infected", Viruses: r.Viruses})
		}
	}
	return scanErrors, nil
}
