package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// Action names a message kind understood by one side of the bridge.
type Action string

const (
	// ActionFetchAndSave asks the worker to fetch or render one document and save it.
	ActionFetchAndSave Action = "fetch_and_save"
	// ActionItemComplete reports the outcome of one fetch_and_save back to the queue.
	ActionItemComplete Action = "download_item_complete"
	// ActionGetSelectedOrders asks the queue side for the orders the user selected.
	ActionGetSelectedOrders Action = "get_selected_orders"
	// ActionStartQueue asks the queue side to build and start a download queue.
	ActionStartQueue Action = "start_download_queue"
	// ActionReloadSettings asks the worker to re-read its settings.
	ActionReloadSettings Action = "reload_settings"
	// ActionRefreshSpreadsheet asks the worker to re-import the category sheet.
	ActionRefreshSpreadsheet Action = "refresh_spreadsheet"
	// ActionUpdateStatus carries the final queue summary.
	ActionUpdateStatus Action = "update_status"

	// Legacy per-strategy actions, all served by the fetch_and_save handler.
	ActionDownloadBinary   Action = "download_binary"
	ActionCaptureURL       Action = "capture_url"
	ActionConvertHTMLToPDF Action = "convert_html_to_pdf"
)

var aliases = map[Action]Action{
	ActionDownloadBinary:   ActionFetchAndSave,
	ActionCaptureURL:       ActionFetchAndSave,
	ActionConvertHTMLToPDF: ActionFetchAndSave,
}

// LegacyStrategy returns the strategy implied by a legacy action name.
func LegacyStrategy(action Action) (models.Strategy, bool) {
	switch action {
	case ActionDownloadBinary:
		return models.Direct, true
	case ActionCaptureURL, ActionConvertHTMLToPDF:
		return models.Render, true
	}
	return "", false
}

// Message is one request or notification crossing the bridge.
type Message struct {
	ID      string          `json:"id"`
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into a message for action.
func NewMessage(action Action, payload any) (*Message, error) {
	msg := &Message{
		ID:     uuid.New().String(),
		Action: action,
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		msg.Payload = data
	}

	return msg, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrInvalidPayload, m.Action)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// Reply is the response to a request. Failures are carried as text, never as
// Go errors, so the requester only branches on Success.
type Reply struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	err error
}

// OK builds a successful reply carrying payload.
func OK(payload any) *Reply {
	r := &Reply{Success: true}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Fail(fmt.Errorf("%w: %w", ErrInvalidPayload, err))
		}
		r.Payload = data
	}
	return r
}

// Fail builds a failed reply from err.
func Fail(err error) *Reply {
	if err == nil {
		return &Reply{}
	}
	return &Reply{Error: err.Error()}
}

// Decode unmarshals the reply payload into v.
func (r *Reply) Decode(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: empty reply payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// FetchAndSave is the payload of ActionFetchAndSave.
type FetchAndSave struct {
	Item     models.WorkItem `json:"item"`
	URL      string          `json:"url"`
	HTML     string          `json:"html,omitempty"`
	BaseURL  string          `json:"baseUrl,omitempty"`
	Strategy models.Strategy `json:"strategy,omitempty"`
}

// ItemComplete is the payload of ActionItemComplete.
type ItemComplete struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Path    string `json:"path,omitempty"`
	Bytes   int    `json:"bytes,omitempty"`
}

// SelectedOrders is the reply payload of ActionGetSelectedOrders.
type SelectedOrders struct {
	Orders []models.Order `json:"orders"`
}

// StartQueue is the payload of ActionStartQueue.
type StartQueue struct {
	Orders   []models.Order  `json:"orders"`
	Settings config.Settings `json:"settings"`
}

// StartQueueResult is the reply payload of ActionStartQueue.
type StartQueueResult struct {
	Total int `json:"total"`
}

// Categories is the reply payload of ActionRefreshSpreadsheet.
type Categories struct {
	Values []string `json:"values"`
}

// Status is the payload of ActionUpdateStatus.
type Status struct {
	Summary string `json:"summary"`
	Success int    `json:"success"`
	Fail    int    `json:"fail"`
}
