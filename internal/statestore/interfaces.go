// interfaces.go: this code defines the interface for the state store operations
package statestore

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Accessor is the set of read/write operations available both on the store
// itself and inside an Update transaction.
type Accessor interface {
	GetBool(key string) (bool, error)
	SetBool(key string, value bool) error
	GetInt(key string) (int, error)
	SetInt(key string, value int) error
	AddDoorEvent(event *DoorEvent) error
	AddSpeechEvent(event *SpeechEvent) error
}

// Interface abstracts the underlying database implementation and defines
// the operations of the shared state store.
type Interface interface {
	Accessor
	Open() error
	Close() error
	SeedDefaults() error
	// Update runs fn inside a transaction so that a read-modify-write
	// sequence commits atomically. fn must not retain the Accessor.
	Update(fn func(Accessor) error) error
	LatestDoorEvents(limit int) ([]DoorEvent, error)
	PendingSpeechEvents() ([]SpeechEvent, error)
	MarkSpeechExecuted(id uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a store instance based on the output configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// seededStates lists every state row and its default. Seeding is
// create-if-absent: existing values are never overwritten on restart.
var seededStates = struct {
	bools []string
	ints  []string
}{
	bools: []string{KeyUserAuthorized, KeyDoorOpen, KeyDoorOpened, KeyGoingOut},
	ints:  []string{KeyTemperature, KeyHumidity},
}

// SeedDefaults creates any missing state rows with their documented
// defaults: booleans false, readings -1 (unknown), pending_since 0.
func (ds *DataStore) SeedDefaults() error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for _, key := range seededStates.bools {
			state := BoolState{Key: key, Value: false}
			if err := tx.Where(BoolState{Key: key}).FirstOrCreate(&state).Error; err != nil {
				return fmt.Errorf("seeding bool state %q: %w", key, err)
			}
		}
		for _, key := range seededStates.ints {
			state := IntState{Key: key, Value: UnknownReading}
			if err := tx.Where(IntState{Key: key}).FirstOrCreate(&state).Error; err != nil {
				return fmt.Errorf("seeding int state %q: %w", key, err)
			}
		}
		pending := IntState{Key: KeyPendingSince, Value: 0}
		if err := tx.Where(IntState{Key: KeyPendingSince}).FirstOrCreate(&pending).Error; err != nil {
			return fmt.Errorf("seeding int state %q: %w", KeyPendingSince, err)
		}
		return nil
	})
}

// GetBool retrieves a boolean state value.
func (ds *DataStore) GetBool(key string) (bool, error) {
	var state BoolState
	if err := ds.DB.First(&state, "key = ?", key).Error; err != nil {
		return false, errors.New(fmt.Errorf("getting bool state %q: %w", key, err)).
			Component("statestore").
			Category(errors.CategoryDatabase).
			Context("key", key).
			Build()
	}
	return state.Value, nil
}

// SetBool writes a boolean state value. The write is a single-row update
// and immediately visible to the next read from any process.
func (ds *DataStore) SetBool(key string, value bool) error {
	result := ds.DB.Model(&BoolState{}).Where("key = ?", key).Update("value", value)
	if result.Error != nil {
		return errors.New(fmt.Errorf("setting bool state %q: %w", key, result.Error)).
			Component("statestore").
			Category(errors.CategoryDatabase).
			Context("key", key).
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("bool state %q does not exist, store not seeded", key).
			Component("statestore").
			Category(errors.CategoryState).
			Context("key", key).
			Build()
	}
	return nil
}

// GetInt retrieves an integer state value.
func (ds *DataStore) GetInt(key string) (int, error) {
	var state IntState
	if err := ds.DB.First(&state, "key = ?", key).Error; err != nil {
		return 0, errors.New(fmt.Errorf("getting int state %q: %w", key, err)).
			Component("statestore").
			Category(errors.CategoryDatabase).
			Context("key", key).
			Build()
	}
	return state.Value, nil
}

// SetInt writes an integer state value.
func (ds *DataStore) SetInt(key string, value int) error {
	result := ds.DB.Model(&IntState{}).Where("key = ?", key).Update("value", value)
	if result.Error != nil {
		return errors.New(fmt.Errorf("setting int state %q: %w", key, result.Error)).
			Component("statestore").
			Category(errors.CategoryDatabase).
			Context("key", key).
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("int state %q does not exist, store not seeded", key).
			Component("statestore").
			Category(errors.CategoryState).
			Context("key", key).
			Build()
	}
	return nil
}

// AddDoorEvent appends a door event. Events are immutable once written.
func (ds *DataStore) AddDoorEvent(event *DoorEvent) error {
	if event.Duration < 0 {
		return errors.Newf("door event duration must not be negative, got %d", event.Duration).
			Component("statestore").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ds.DB.Create(event).Error; err != nil {
		return fmt.Errorf("saving door event: %w", err)
	}
	return nil
}

// LatestDoorEvents retrieves the most recent door events, newest first.
func (ds *DataStore) LatestDoorEvents(limit int) ([]DoorEvent, error) {
	var events []DoorEvent
	if result := ds.DB.Order("id DESC").Limit(limit).Find(&events); result.Error != nil {
		return nil, fmt.Errorf("getting latest door events: %w", result.Error)
	}
	return events, nil
}

// AddSpeechEvent queues an utterance for the speech output worker.
func (ds *DataStore) AddSpeechEvent(event *SpeechEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	if err := ds.DB.Create(event).Error; err != nil {
		return fmt.Errorf("saving speech event: %w", err)
	}
	return nil
}

// PendingSpeechEvents returns unexecuted speech events in FIFO order.
func (ds *DataStore) PendingSpeechEvents() ([]SpeechEvent, error) {
	var events []SpeechEvent
	err := ds.DB.Where("executed = ?", false).
		Order("timestamp ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("getting pending speech events: %w", err)
	}
	return events, nil
}

// MarkSpeechExecuted flags a speech event as played.
func (ds *DataStore) MarkSpeechExecuted(id uint) error {
	result := ds.DB.Model(&SpeechEvent{}).Where("id = ?", id).Update("executed", true)
	if result.Error != nil {
		return fmt.Errorf("marking speech event %d executed: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("speech event %d not found", id)
	}
	return nil
}

// Update runs fn inside a transaction. All writes made through the passed
// Accessor commit together or not at all.
func (ds *DataStore) Update(fn func(Accessor) error) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&DataStore{DB: tx})
	})
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&BoolState{}, &IntState{}, &DoorEvent{}, &SpeechEvent{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
