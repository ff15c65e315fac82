package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/core"
	"github.com/mizuki/StudyRoom/internal/domain"
)

// handleJoin binds the connection to a session. The payload may carry a full
// session copy for older clients, but only the id is trusted; the record is
// read back from the store.
func (ctl *PresenceController) handleJoin(id core.ConnID, c *wsConn, data []byte) {
	type joinPayload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad join payload")
		ctl.sendJSON(c, map[string]any{
			"type":    "error",
			"message": "bad_payload",
		})
		return
	}
	if p.SessionID == 0 {
		ctl.sendJSON(c, map[string]any{
			"type":    "error",
			"message": "missing sessionId",
		})
		return
	}

	log.Info().Str("module", "ws").Str("conn", string(id)).Int64("session", int64(p.SessionID)).Msg("join-room")
	ctl.Coord.Join(id, p.SessionID)
}

// handleLeave — the connection stays open, only the room membership ends.
func (ctl *PresenceController) handleLeave(id core.ConnID) {
	log.Info().Str("module", "ws").Str("conn", string(id)).Msg("leave-room")
	ctl.Coord.Leave(id)
}

func (ctl *PresenceController) handleUpdate(id core.ConnID, c *wsConn, data []byte) {
	type updatePayload struct {
		Type      string               `json:"type"`
		SessionID domain.SessionID     `json:"sessionId"`
		Updates   domain.SessionUpdate `json:"updates"`
	}
	var p updatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad update payload")
		ctl.sendJSON(c, map[string]any{
			"type":    "error",
			"message": "bad_payload",
		})
		return
	}

	log.Info().Str("module", "ws").Str("conn", string(id)).Int64("session", int64(p.SessionID)).Msg("update-session")
	ctl.Coord.Update(id, p.SessionID, p.Updates)
}

func (ctl *PresenceController) handlePing(c *wsConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}
