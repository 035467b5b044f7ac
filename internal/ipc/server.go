package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/traykeep/traykeep/internal/config"
	"github.com/traykeep/traykeep/internal/daemon"
	"github.com/traykeep/traykeep/internal/runtimepath"
	"github.com/traykeep/traykeep/internal/tray"
)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	controller   *daemon.Controller
	logger       *slog.Logger
	reloadChan   chan *config.Config
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. Reloaded configs are handed to the
// daemon main loop through reloadChan; the server itself only validates
// them.
func NewServer(controller *daemon.Controller, logger *slog.Logger, reloadChan chan *config.Config) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		controller: controller,
		logger:     logger,
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandToggle:
		return s.handleToggle()
	case CommandRefresh:
		return s.handleRefresh()
	case CommandRestore:
		return s.handleRestore()
	case CommandMoveItem:
		return s.handleMoveItem(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload reloads and validates the configuration, then hands it to
// the daemon main loop.
func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")

	newCfg, err := config.Load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- newCfg:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	st := s.controller.Status()

	status := StatusData{
		State:         st.State,
		ItemCounts:    st.ItemCounts,
		SpacerCount:   st.SpacerCount,
		Overrides:     st.Overrides,
		NewItems:      st.NewItems,
		UptimeSeconds: st.UptimeSeconds,
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleToggle() *Response {
	s.controller.Toggle()
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleRefresh() *Response {
	if err := s.controller.Refresh(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to refresh: %v", err))
	}

	st := s.controller.Status()
	data := RefreshData{
		ItemCounts:  st.ItemCounts,
		SpacerCount: st.SpacerCount,
		Overrides:   st.Overrides,
		NewItems:    st.NewItems,
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleRestore() *Response {
	out := s.controller.RestoreSavedPositions()

	data := RestoreData{
		Attempted: out.Attempted,
		Moved:     out.Moved,
		Skipped:   out.Skipped,
		Failed:    out.Failed,
		Missing:   len(out.Missing),
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleMoveItem(payload json.RawMessage) *Response {
	var req MoveItemPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid move payload: %v", err))
	}
	if req.Namespace == "" {
		return NewErrorResponse("namespace is required")
	}
	section := tray.Section(req.Section)
	switch section {
	case tray.SectionVisible, tray.SectionHidden, tray.SectionAlwaysHidden:
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown section: %s", req.Section))
	}

	id := tray.IconIdentity{Namespace: req.Namespace, Title: req.Title}
	if err := s.controller.MoveItem(id, section, req.InsertIndex); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to move item: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
