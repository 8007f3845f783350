package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rtk-rover/internal/rover"
	"rtk-rover/internal/ubx"
)

// Dashboard POSTs position reports to the fleet dashboard as JSON. Each
// report is a single short-lived request; failures are left to the caller's
// retry cadence.
type Dashboard struct {
	url    string
	client *http.Client
}

func NewDashboard(url string) *Dashboard {
	return &Dashboard{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *Dashboard) Publish(fix ubx.PositionFix, stats rover.Statistics, aux rover.Aux) error {
	body, err := json.Marshal(buildPayload(fix, stats, aux))
	if err != nil {
		return fmt.Errorf("dashboard marshal: %w", err)
	}
	resp, err := d.client.Post(d.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dashboard post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dashboard rejected report: %s", resp.Status)
	}
	return nil
}
