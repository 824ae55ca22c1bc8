package gateway

import (
	"context"
	"errors"

	"github.com/classpod/core/internal/modules/authz"
	"github.com/classpod/core/internal/modules/submissions"
	"github.com/classpod/core/internal/pkg/token"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func (h *Hub) registerNamespaces() {
	ns := h.sio.Of(namespaceSession, nil)
	_ = ns.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		sid := string(client.Id())

		_ = client.On(eventJoin, h.action(sid, client, h.handleJoin))
		_ = client.On(eventJoinRealtime, h.action(sid, client, h.handleJoinRealtime))
		_ = client.On(eventSignalingPayload, h.action(sid, client, h.handleSignalingPayload))
		_ = client.On(eventSubmitWork, h.action(sid, client, h.handleSubmitWork))
		_ = client.On(eventBroadcastCommand, h.action(sid, client, h.handleBroadcastCommand))
		_ = client.On(eventRequestFromInstructors, h.action(sid, client, h.handleRequestFromInstructors))

		_ = client.On("disconnect", func(_ ...any) {
			// Cleanup callbacks registered on join drop the connection from
			// its room and tear down its signaling links.
			h.registry.Unregister(sid)
			h.dropState(sid)
		})
	})
}

// action wraps an event handler with per-action panic recovery: a fault in
// one room's processing surfaces as a log line, never as a downed hub.
func (h *Hub) action(sid string, client *socketio.Socket, fn func(sid string, client *socketio.Socket, payload map[string]interface{})) func(...any) {
	return func(args ...any) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("gateway action panic", zap.String("sid", sid), zap.Any("panic", r))
			}
		}()
		fn(sid, client, payloadFromArgs(args))
	}
}

// evaluateJoin validates a join token against any session already bound to
// the connection. A repeated join must present a currently valid token for
// the same classroom; switching classrooms requires a fresh connection.
func evaluateJoin(existing *connState, raw string) (*token.Claims, string) {
	claims, err := token.Parse(raw, token.PurposeSession)
	if err != nil {
		return nil, "invalid token"
	}
	if existing != nil && (existing.classroomID != claims.ClassroomID || existing.userID != claims.UserID) {
		return nil, "already joined as a different identity"
	}
	return claims, ""
}

func (h *Hub) handleJoin(sid string, client *socketio.Socket, payload map[string]interface{}) {
	existing, joined := h.stateOf(sid)
	claims, reason := evaluateJoin(existing, strFromAny(payload["token"]))
	if reason != "" {
		// The connection stays open so the client can retry with a fresh token.
		_ = client.Emit(eventJoinResult, map[string]interface{}{"accepted": false, "reason": reason})
		return
	}
	if joined {
		// Idempotent re-join with a still-valid token for the same session.
		_ = client.Emit(eventJoinResult, map[string]interface{}{"accepted": true})
		return
	}

	room := h.rooms.GetOrCreate(claims.ClassroomID)
	st := &connState{userID: claims.UserID, classroomID: claims.ClassroomID, room: room}

	h.registry.Register(sid, claims.UserID)
	h.registry.OnClose(sid, func() {
		h.rooms.Remove(room, sid)
	})
	h.setState(sid, st)

	_ = client.Emit(eventJoinResult, map[string]interface{}{"accepted": true})
	// Admit after the accept so the catch-up activity event is the first
	// room state the client observes.
	h.rooms.Admit(room, socketClient{s: client})

	h.logger.Info("member joined",
		zap.String("classroom", claims.ClassroomID),
		zap.String("user", claims.UserID),
		zap.String("sid", sid),
	)
}

func (h *Hub) handleJoinRealtime(sid string, client *socketio.Socket, _ map[string]interface{}) {
	st, ok := h.stateOf(sid)
	if !ok {
		_ = client.Emit(eventJoinRealtimeResult, resultErr("join first"))
		return
	}
	sess, ok := st.room.SignalingSession()
	if !ok {
		_ = client.Emit(eventJoinRealtimeResult, resultErr("no active activity"))
		return
	}

	_ = client.Emit(eventJoinRealtimeResult, resultOK(nil))
	sess.Join(socketClient{s: client})
}

func (h *Hub) handleSignalingPayload(sid string, _ *socketio.Socket, payload map[string]interface{}) {
	st, ok := h.stateOf(sid)
	if !ok {
		return
	}
	sess, ok := st.room.SignalingSession()
	if !ok {
		return
	}
	linkID := strFromAny(payload["connectionId"])
	if linkID == "" {
		return
	}
	// Forwarded verbatim; the server never inspects offers, answers or
	// candidates.
	sess.Relay(sid, linkID, payload["payload"])
}

func (h *Hub) handleSubmitWork(sid string, client *socketio.Socket, payload map[string]interface{}) {
	st, ok := h.stateOf(sid)
	if !ok {
		_ = client.Emit(eventSubmitResult, resultErr("join first"))
		return
	}

	body, ok := submissionPayload(payload["payload"])
	if !ok {
		_ = client.Emit(eventSubmitResult, resultErr("empty payload"))
		return
	}

	ctx := context.Background()
	sub, err := h.intake.Submit(ctx, st.classroomID, st.userID, body)
	if err != nil {
		_ = client.Emit(eventSubmitResult, resultErr(rejectionReason(err)))
		return
	}

	_ = client.Emit(eventSubmitResult, resultOK(map[string]interface{}{"version": sub.Version}))

	// Instructors are re-resolved at delivery time rather than read from
	// any cache; a just-promoted instructor gets this one too.
	for _, instr := range h.rooms.Instructors(ctx, st.room) {
		instr.Sender.Send(eventSubmissionReceived, map[string]interface{}{"submission": sub})
	}
}

func (h *Hub) handleBroadcastCommand(sid string, client *socketio.Socket, payload map[string]interface{}) {
	st, ok := h.stateOf(sid)
	if !ok {
		_ = client.Emit(eventCommandResult, resultErr("join first"))
		return
	}

	ctx := context.Background()
	allowed, err := h.scopes.Allows(ctx, st.userID, authz.ScopeActivityRun, st.classroomID)
	if err != nil || !allowed {
		_ = client.Emit(eventCommandResult, resultErr("not permitted"))
		return
	}

	targets := strSliceFromAny(payload["targetUserIds"])
	targetSet := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		targetSet[id] = struct{}{}
	}

	delivery := map[string]interface{}{
		"from":    st.userID,
		"payload": payload["payload"],
	}
	for _, member := range h.rooms.Members(ctx, st.room) {
		if member.ConnID == sid {
			continue
		}
		if len(targetSet) > 0 {
			if _, want := targetSet[member.UserID]; !want {
				continue
			}
		}
		member.Sender.Send(eventCommand, delivery)
	}

	_ = client.Emit(eventCommandResult, resultOK(nil))
}

func (h *Hub) handleRequestFromInstructors(sid string, client *socketio.Socket, payload map[string]interface{}) {
	st, ok := h.stateOf(sid)
	if !ok {
		_ = client.Emit(eventRequestResult, resultErr("join first"))
		return
	}

	ctx := context.Background()
	allowed, err := h.scopes.Allows(ctx, st.userID, authz.ScopeActivityView, st.classroomID)
	if err != nil || !allowed {
		_ = client.Emit(eventRequestResult, resultErr("not permitted"))
		return
	}

	delivery := map[string]interface{}{
		"from":    st.userID,
		"payload": payload["payload"],
	}
	for _, instr := range h.rooms.Instructors(ctx, st.room) {
		instr.Sender.Send(eventInstructorRequest, delivery)
	}

	_ = client.Emit(eventRequestResult, resultOK(nil))
}

// rejectionReason maps intake sentinels to the human-readable strings the
// protocol promises. Anything unexpected collapses to a generic rejection.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, submissions.ErrNoActiveActivity):
		return "no active activity"
	case errors.Is(err, submissions.ErrInstructorSubmit):
		return "instructors cannot submit"
	case errors.Is(err, submissions.ErrUnauthorized):
		return "not permitted"
	case errors.Is(err, submissions.ErrRateLimited):
		return "submitted too recently"
	case errors.Is(err, submissions.ErrConflictingVersion):
		return "submission conflict, please retry"
	default:
		return "submission failed"
	}
}
