package sbus

import (
	"github.com/timotiviert/digimat-saia/wire"
)

// ReadStationNumberRequest asks a PCD to report its logical station id.
// Sent unicast against a known server, or broadcast by DiscoverNodes.
type ReadStationNumberRequest struct {
	baseRequest
	server *Server
}

func NewReadStationNumberRequest(server *Server, broadcast bool) *ReadStationNumberRequest {
	return &ReadStationNumberRequest{
		baseRequest: newBaseRequest(wire.OpReadStationNumber, 3, broadcast),
		server:      server,
	}
}

func (r *ReadStationNumberRequest) Build() ([]byte, error) {
	return []byte{byte(r.opcode)}, nil
}

func (r *ReadStationNumberRequest) Process(body []byte) bool {
	if len(body) < 1 || r.server == nil {
		return false
	}
	r.server.setLid(int(body[0]))
	return true
}

// ReadPcdStatusOwnRequest polls the CPU run state (spec.md §4.7: "re-issue
// ReadPcdStatusOwn every 5s" for remote servers).
type ReadPcdStatusOwnRequest struct {
	baseRequest
	server *Server
}

func NewReadPcdStatusOwnRequest(server *Server) *ReadPcdStatusOwnRequest {
	return &ReadPcdStatusOwnRequest{
		baseRequest: newBaseRequest(wire.OpReadPcdStatusOwn, 3, false),
		server:      server,
	}
}

func (r *ReadPcdStatusOwnRequest) Build() ([]byte, error) {
	return []byte{byte(r.opcode)}, nil
}

func (r *ReadPcdStatusOwnRequest) Process(body []byte) bool {
	if len(body) < 1 || r.server == nil {
		return false
	}
	r.server.setStatus(wire.StatusByte(body[0]))
	return true
}

// cpuControlRequest implements RunCpuAll/StopCpuAll/RestartCpuAll: no
// payload beyond the opcode, no meaningful response body.
type cpuControlRequest struct {
	baseRequest
	server *Server
}

func newCPUControlRequest(op wire.Opcode, server *Server) cpuControlRequest {
	return cpuControlRequest{baseRequest: newBaseRequest(op, 3, false), server: server}
}

func (r *cpuControlRequest) Build() ([]byte, error) { return []byte{byte(r.opcode)}, nil }
func (r *cpuControlRequest) Process(body []byte) bool { return true }

type RunCpuAllRequest struct{ cpuControlRequest }

func NewRunCpuAllRequest(server *Server) *RunCpuAllRequest {
	return &RunCpuAllRequest{newCPUControlRequest(wire.OpRunCpuAll, server)}
}

type StopCpuAllRequest struct{ cpuControlRequest }

func NewStopCpuAllRequest(server *Server) *StopCpuAllRequest {
	return &StopCpuAllRequest{newCPUControlRequest(wire.OpStopCpuAll, server)}
}

type RestartCpuAllRequest struct{ cpuControlRequest }

func NewRestartCpuAllRequest(server *Server) *RestartCpuAllRequest {
	return &RestartCpuAllRequest{newCPUControlRequest(wire.OpRestartCpuAll, server)}
}
