package apiclient

import (
	"fmt"
	"net/url"

	"github.com/markhive/markhive/pkg/ingest"
)

// StartIngestRequest mirrors the POST /api/ingest body.
type StartIngestRequest struct {
	Folder    string   `json:"folder"`
	Recursive *bool    `json:"recursive,omitempty"`
	DateFrom  string   `json:"date_from,omitempty"`
	DateTo    string   `json:"date_to,omitempty"`
	FileTypes []string `json:"file_types,omitempty"`
}

// StartIngest starts an ingestion session and returns its id.
func (c *Client) StartIngest(req StartIngestRequest) (string, error) {
	var data struct {
		SessionID string `json:"session_id"`
	}
	if err := c.post("/api/ingest", req, &data); err != nil {
		return "", err
	}
	return data.SessionID, nil
}

// CancelSession requests cooperative cancellation of one session.
func (c *Client) CancelSession(id string) error {
	return c.post(fmt.Sprintf("/api/ingest/%s/cancel", url.PathEscape(id)), nil, nil)
}

// CancelAllSessions cancels every active session and returns their ids.
func (c *Client) CancelAllSessions() ([]string, error) {
	var data struct {
		Cancelled []string `json:"cancelled"`
	}
	if err := c.post("/api/ingest/cancel-all", nil, &data); err != nil {
		return nil, err
	}
	return data.Cancelled, nil
}

// ActiveSessions returns the ids of sessions that have not yet ended.
func (c *Client) ActiveSessions() ([]string, error) {
	var data struct {
		Active []string `json:"active"`
	}
	if err := c.get("/api/sessions", &data); err != nil {
		return nil, err
	}
	return data.Active, nil
}

// SessionHistory returns the debug snapshot of a session, including its
// retained event history.
func (c *Client) SessionHistory(id string) (*ingest.Snapshot, error) {
	var snap ingest.Snapshot
	if err := c.get(fmt.Sprintf("/api/sessions/%s", url.PathEscape(id)), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
