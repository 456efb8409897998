package relay

import "github.com/dkeye/carecall/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackPressure(member core.MemberSession) BackpressureAction
}

// SimplePolicy kicks slow users. Admins only lose the frame.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(member core.MemberSession) BackpressureAction {
	if member.Meta().Admin {
		return DropFrame
	}
	return KickMember
}
