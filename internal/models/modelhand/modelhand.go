// Package modelhand provides types describing poker hands and hand participation.

package modelhand

// Hand lifecycle statuses as reported by the hand feed.
const (
	StatusNew      = "NEW"
	StatusPlaying  = "PLAYING"
	StatusFinished = "FINISHED"
	StatusVoid     = "VOID"
)

// Participation links one user to one hand they took part in. The serial pair
// is the identity: a user may be linked to a given hand at most once, and both
// serials must reference existing rows. Rows are immutable once written.
type Participation struct {
	UserSerial int64 `db:"user_serial"`
	HandSerial int64 `db:"hand_serial"`
}
