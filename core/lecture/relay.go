package lecture

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var errNotASignal = errors.New("not a signaling message")

// WebRTCSignal is what the target of a relayed negotiation message receives.
type WebRTCSignal struct {
	SenderSocketID string          `json:"senderSocketId"`
	SDP            json.RawMessage `json:"sdp,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

func isSignal(kind string) bool {
	switch kind {
	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCIceCandidate:
		return true
	default:
		return false
	}
}

// Relay forwards a peer negotiation message to the connection req.TargetSocketID,
// tagged with the sender's connection id. The payload is opaque and rooms are not
// consulted. ErrTargetUnreachable means the target went away or could not take
// the message; transports drop it silently.
func (svc *Service) Relay(connID, kind string, req RelayRequest) error {
	if !isSignal(kind) {
		return errNotASignal
	}
	if _, ok := svc.registry.Lookup(connID); !ok {
		return ErrNotAMember
	}
	target, ok := svc.registry.Lookup(req.TargetSocketID)
	if !ok {
		return ErrTargetUnreachable
	}
	sent := target.send(kind, WebRTCSignal{
		SenderSocketID: connID,
		SDP:            req.SDP,
		Candidate:      req.Candidate,
	})
	if !sent {
		return ErrTargetUnreachable
	}
	return nil
}
