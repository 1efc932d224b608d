package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Clients and stores return these
// (optionally wrapped) so the gate can translate them into a decision without
// inspecting error strings.
//
// These represent factual states about resources, not validation failures:
// - ErrNoSession: the auth backend reports no authenticated identity
// - ErrRevoked: the presented token is on the denylist
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: collaborator (auth backend, Redis, sink) unreachable
var (
	ErrNoSession    = errors.New("no session")
	ErrRevoked      = errors.New("revoked")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
