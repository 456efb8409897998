package core

import "github.com/dkeye/carecall/internal/domain"

// MemberSession binds domain.Member and its transport endpoint.
// This is what the relay registry stores and routes to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}
