// model.go defines the persisted data model for the shared state store.
package statestore

import (
	"fmt"
	"time"
)

// Well-known state keys. The stores of every sentinel process share these
// rows; they are seeded once and never deleted.
const (
	KeyUserAuthorized = "user_authorized"
	KeyDoorOpen       = "door_open"
	KeyDoorOpened     = "door_opened"
	KeyGoingOut       = "going_out"
	KeyTemperature    = "temperature"
	KeyHumidity       = "humidity"
	// KeyPendingSince holds the unix timestamp of the first unauthorized
	// door-open warning, 0 when no alert is pending. Persisting it lets a
	// restarted alarm monitor resume mid-break-in.
	KeyPendingSince = "pending_since"
)

// UnknownReading is the seeded value for integer states with no reading yet.
const UnknownReading = -1

// BoolState is a single named boolean flag shared across processes.
type BoolState struct {
	Key   string `gorm:"primaryKey;size:255"`
	Value bool   `gorm:"not null"`
}

// TableName keeps the on-disk layout compatible across node versions.
func (BoolState) TableName() string { return "bools" }

// IntState is a single named integer value shared across processes.
type IntState struct {
	Key   string `gorm:"primaryKey;size:255"`
	Value int    `gorm:"not null"`
}

func (IntState) TableName() string { return "ints" }

// DoorEvent is appended once per door-open interval, when the door closes.
type DoorEvent struct {
	ID            uint  `gorm:"primaryKey"`
	Timestamp     int64 `gorm:"not null;index"` // close time as unix seconds
	Duration      int64 `gorm:"not null"`       // seconds the door was open
	WasAuthorized bool  `gorm:"not null"`       // user_authorized at close time
}

func (DoorEvent) TableName() string { return "door_open_events" }

// String renders the event the way the status commands report it.
func (e *DoorEvent) String() string {
	date := time.Unix(e.Timestamp, 0).Format("2006-01-02:15-04-05")
	authorized := "not authorized"
	if e.WasAuthorized {
		authorized = "authorized"
	}
	return fmt.Sprintf("%s: %ds, %s", date, e.Duration, authorized)
}

// SpeechEvent is a queued utterance for the speech output worker. Executed
// is flipped once the worker has played it; replay after a crash between
// play and commit is tolerated.
type SpeechEvent struct {
	ID        uint   `gorm:"primaryKey"`
	Timestamp int64  `gorm:"not null;index"`
	Text      string `gorm:"size:255;not null"`
	Executed  bool   `gorm:"not null;default:false;index"`
}

func (SpeechEvent) TableName() string { return "speaker_events" }
