package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/traykeep/traykeep/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    30 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	// Connect to socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	// Restoration drags dozens of icons with settle pauses between them;
	// the deadline has to outlast the slowest whole operation.
	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	req := &Request{
		Command: CommandReload,
	}

	_, err := c.sendRequest(req)
	return err
}

// Toggle sends a TOGGLE command to the daemon.
func (c *Client) Toggle() error {
	req := &Request{
		Command: CommandToggle,
	}

	_, err := c.sendRequest(req)
	return err
}

// Refresh re-captures the strip and returns the resulting counts.
func (c *Client) Refresh() (*RefreshData, error) {
	req := &Request{
		Command: CommandRefresh,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var data RefreshData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse refresh data: %w", err)
	}

	return &data, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	req := &Request{
		Command: CommandGetStatus,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// Restore replays the persisted icon positions.
func (c *Client) Restore() (*RestoreData, error) {
	req := &Request{
		Command: CommandRestore,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var data RestoreData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse restore data: %w", err)
	}

	return &data, nil
}

// MoveItem asks the daemon to drag an icon into a section slot.
func (c *Client) MoveItem(namespace, title, section string, insertIndex int) error {
	payload, err := json.Marshal(MoveItemPayload{
		Namespace:   namespace,
		Title:       title,
		Section:     section,
		InsertIndex: insertIndex,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal move payload: %w", err)
	}

	req := &Request{
		Command: CommandMoveItem,
		Payload: payload,
	}

	_, err = c.sendRequest(req)
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
