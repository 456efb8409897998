package signal

import (
	"encoding/json"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
)

func (ctl *SignalWSController) handlePing(sess core.MemberSession) {
	ctl.Board.Reply(sess, domain.MsgPong)
}

func encode(msg domain.Message) (core.Frame, error) {
	return json.Marshal(msg)
}
