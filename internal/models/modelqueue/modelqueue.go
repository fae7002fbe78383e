// Package modelqueue provides types for queueing pieces of data.

package modelqueue

import (
	"time"

	"github.com/shopspring/decimal"
)

// HandQueueEntry is a hand awaiting a result from the hand feed.
type HandQueueEntry struct {
	HandSerial  int64
	HandStatus  string
	RetryCount  int
	LastChecked time.Time
	RetryAfter  time.Duration
}

// HandResultEntry is a settled hand ready for DB update.
type HandResultEntry struct {
	HandSerial   int64
	HandStatus   string
	Participants []HandResultParticipant
}

// HandResultParticipant carries one player's pot delta in chips.
type HandResultParticipant struct {
	UserSerial int64
	Pot        decimal.Decimal
}
