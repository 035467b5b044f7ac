package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload    CommandType = "RELOAD"
	CommandGetStatus CommandType = "GET_STATUS"
	CommandToggle    CommandType = "TOGGLE"
	CommandRefresh   CommandType = "REFRESH"
	CommandRestore   CommandType = "RESTORE"
	CommandMoveItem  CommandType = "MOVE_ITEM"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	State         string         `json:"state"`
	ItemCounts    map[string]int `json:"item_counts"`
	SpacerCount   int            `json:"spacer_count"`
	Overrides     int            `json:"overrides"`
	NewItems      int            `json:"new_items"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	DaemonRunning bool           `json:"daemon_running"`
}

// RefreshData represents the data returned by REFRESH
type RefreshData struct {
	ItemCounts  map[string]int `json:"item_counts"`
	SpacerCount int            `json:"spacer_count"`
	Overrides   int            `json:"overrides"`
	NewItems    int            `json:"new_items"`
}

// RestoreData represents the data returned by RESTORE
type RestoreData struct {
	Attempted int `json:"attempted"`
	Moved     int `json:"moved"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Missing   int `json:"missing"`
}

// MoveItemPayload represents the payload for MOVE_ITEM command
type MoveItemPayload struct {
	Namespace   string `json:"namespace"`
	Title       string `json:"title,omitempty"`
	Section     string `json:"section"`
	InsertIndex int    `json:"insert_index"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
