package signal

import "github.com/dkeye/meshcall/internal/protocol"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.send(conn, protocol.Message{Type: protocol.TypePong})
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, reason string) {
	ctl.send(conn, protocol.Error(reason))
}
