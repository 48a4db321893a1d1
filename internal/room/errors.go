package room

import "errors"

// Admission failures. All are fatal to the connection attempt only: a
// rejected connection is closed before it ever joins a room, with no
// room-level message.
var (
	// ErrInvalidRoomID means the room identifier is not syntactically
	// valid. Checked before any lookup.
	ErrInvalidRoomID = errors.New("invalid room id")

	// ErrRoomNotFound means the identifier does not resolve to an
	// existing project.
	ErrRoomNotFound = errors.New("room not found")

	// ErrUnauthenticated means the credential is missing, invalid,
	// expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
)
