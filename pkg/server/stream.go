package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	slogctx "github.com/veqryn/slog-context"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
	"github.com/vango-dev/keyed/pkg/protocol"
	"github.com/vango-dev/keyed/pkg/reconciler"
	"github.com/vango-dev/keyed/pkg/snapshot"
)

// row is the rendered state of one key in a stream session. Streams only
// track order, so the handle is empty.
type row = keyed.Entry[string, string, struct{}]

func buildRow(_ int, key string) *row {
	return keyed.NewEntry(key, key, struct{}{})
}

// streamSession is one websocket connection.
type streamSession struct {
	id      string
	conn    *websocket.Conn
	server  *Server
	list    *reconciler.Reconciler[string, string, struct{}]
	frames  protocol.Assembler
	lastSeq uint64
	logger  *slog.Logger
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slogctx.FromCtx(ctx)

	id, baseline := s.resumeBaseline(ctx, r.URL.Query().Get("session"))

	conn, err := s.upgrader.Upgrade(w, r, http.Header{SessionHeader: {id}})
	if err != nil {
		// Upgrade has already written an HTTP error.
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	logger = logger.With("session", id)
	ctx = slogctx.NewCtx(context.WithoutCancel(ctx), logger)

	opts := []reconciler.Option{
		reconciler.WithName("stream"),
		reconciler.WithDuplicatePolicy(s.config.Duplicates),
		reconciler.WithTracer(s.config.Tracer),
		reconciler.WithDiffOptions(s.config.diffOptions(s.config.Strategy, s.config.PassiveShifts, s.config.Grouping)...),
	}
	if s.config.Metrics != nil {
		opts = append(opts, reconciler.WithObserver(s.config.Metrics))
		s.config.Metrics.SessionOpened()
		defer s.config.Metrics.SessionClosed()
	}

	sess := &streamSession{
		id:     id,
		conn:   conn,
		server: s,
		list:   reconciler.New(func(k string) string { return k }, buildRow, nil, opts...),
		logger: logger,
	}
	if len(baseline) > 0 {
		if _, err := sess.list.Update(ctx, baseline); err != nil {
			logger.Warn("stored baseline rejected", "error", err)
		}
	}

	logger.Info("stream opened", "resumed", baseline != nil, "entries", sess.list.Len())
	sess.readLoop(ctx)
	sess.list.Dispose(ctx)
	conn.Close()
	logger.Info("stream closed")
}

// resumeBaseline returns the session ID to use and, when requested is a
// known session, its stored key list. Unknown or malformed IDs start a new
// session.
func (s *Server) resumeBaseline(ctx context.Context, requested string) (string, []string) {
	if requested == "" {
		return uuid.NewString(), nil
	}
	parsed, err := uuid.Parse(requested)
	if err != nil {
		slogctx.FromCtx(ctx).Warn("invalid session id", "session", requested)
		return uuid.NewString(), nil
	}

	id := parsed.String()
	keys, err := s.config.Store.Load(ctx, id)
	switch {
	case err == nil:
		if keys == nil {
			keys = []string{}
		}
		return id, keys
	case snapshot.IsNotFound(err):
		return id, nil
	default:
		slogctx.FromCtx(ctx).Error("snapshot load failed", "session", id, "error", err)
		return id, nil
	}
}

// readLoop reads frames until the connection is closed.
func (ss *streamSession) readLoop(ctx context.Context) {
	for {
		ss.conn.SetReadDeadline(time.Now().Add(ss.server.config.ReadTimeout))

		_, msg, err := ss.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				ss.logger.Error("read error", "error", err)
				ss.streamError("read")
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			ss.logger.Warn("frame decode error", "error", err)
			ss.streamError("decode")
			ss.sendError(err, false)
			continue
		}
		payload, complete, err := ss.frames.Add(frame)
		if err != nil {
			ss.logger.Warn("frame assembly error", "error", err)
			ss.streamError("decode")
			ss.sendError(err, false)
			continue
		}
		if !complete {
			continue
		}

		switch frame.Type {
		case protocol.FrameSnapshot:
			ss.handleSnapshot(ctx, payload)

		case protocol.FrameControl:
			if done := ss.handleControl(ctx, payload); done {
				return
			}

		default:
			ss.streamError("unexpected")
			ss.sendError(errors.New("E261").WithDetailf("%s frames are not accepted from clients", frame.Type), false)
		}
	}
}

// handleSnapshot reconciles the session list with a client snapshot and
// answers with the diff.
func (ss *streamSession) handleSnapshot(ctx context.Context, payload []byte) {
	snap, err := protocol.DecodeSnapshot(payload)
	if err != nil {
		ss.logger.Warn("snapshot decode error", "error", err)
		ss.streamError("decode")
		ss.sendError(err, false)
		return
	}
	if snap.Seq <= ss.lastSeq {
		ss.streamError("sequence")
		ss.sendError(errors.New("E263").WithDetailf("snapshot %d after %d", snap.Seq, ss.lastSeq), false)
		return
	}
	ss.lastSeq = snap.Seq

	res, err := ss.list.Update(ctx, snap.Keys)
	if err != nil {
		ss.sendError(err, false)
		return
	}

	if err := ss.server.config.Store.Save(ctx, ss.id, res.Keys); err != nil {
		ss.logger.Error("snapshot save failed", "error", err)
		ss.streamError("store")
	}

	data := protocol.EncodeDiff(&protocol.DiffMessage{Seq: snap.Seq, Diff: res.Diff})
	for _, f := range protocol.Split(protocol.FrameDiff, data) {
		if err := ss.write(f); err != nil {
			return
		}
	}
}

// handleControl answers pings and handles close requests. It reports
// whether the stream should end.
func (ss *streamSession) handleControl(ctx context.Context, payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		ss.streamError("decode")
		ss.sendError(err, false)
		return false
	}

	switch c.Type {
	case protocol.ControlPing:
		ss.write(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
			Type:      protocol.ControlPong,
			Timestamp: c.Timestamp,
		})))
	case protocol.ControlClose:
		// An explicit close ends the session for good.
		if err := ss.server.config.Store.Delete(ctx, ss.id); err != nil {
			ss.logger.Error("snapshot delete failed", "error", err)
		}
		ss.write(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{Type: protocol.ControlClose})))
		ss.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(ss.server.config.WriteTimeout))
		return true
	}
	return false
}

func (ss *streamSession) sendError(err error, fatal bool) {
	ke := errors.FromError(err, "E260")
	ss.write(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(&protocol.ErrorMessage{
		Code:    ke.Code,
		Message: ke.FormatCompact(),
		Fatal:   fatal,
	})))
}

func (ss *streamSession) write(f *protocol.Frame) error {
	ss.conn.SetWriteDeadline(time.Now().Add(ss.server.config.WriteTimeout))
	if err := ss.conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
		ss.logger.Warn("write error", "error", err)
		ss.streamError("write")
		return err
	}
	if m := ss.server.config.Metrics; m != nil {
		m.FrameSent(f.Type.String())
	}
	return nil
}

func (ss *streamSession) streamError(kind string) {
	if m := ss.server.config.Metrics; m != nil {
		m.StreamError(kind)
	}
}
