package domain

// JoinCredential is a signed, time-bounded token scoping one identity to one
// room. It is consumed by exactly one connection attempt and never stored.
type JoinCredential struct {
	Token    string
	Room     RoomName
	Identity Identity
}
