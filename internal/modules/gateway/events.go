package gateway

const namespaceSession = "/session"

// Client -> server events.
const (
	eventJoin                   = "join"
	eventJoinRealtime           = "joinRealtime"
	eventSignalingPayload       = "signalingPayload"
	eventSubmitWork             = "submitWork"
	eventBroadcastCommand       = "broadcastCommand"
	eventRequestFromInstructors = "requestFromInstructors"
)

// Server -> client result and delivery events. Result events answer the
// request of the same connection; delivery events fan out to other members.
const (
	eventJoinResult         = "joinResult"
	eventJoinRealtimeResult = "joinRealtimeResult"
	eventSubmitResult       = "submitResult"
	eventCommandResult      = "commandResult"
	eventRequestResult      = "requestResult"
	eventSubmissionReceived = "submissionReceived"
	eventCommand            = "command"
	eventInstructorRequest  = "instructorRequest"
)

func resultOK(extra map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"ok": true}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func resultErr(reason string) map[string]interface{} {
	return map[string]interface{}{"ok": false, "reason": reason}
}
