package webhook

import (
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const processedBucket = "webhook_events"

// Ledger remembers which events were already dispatched
type Ledger interface {
	// Seen reports whether id was recorded and when
	Seen(id string) (time.Time, bool, error)
	// MarkProcessed records id, keeping the first timestamp on repeats
	MarkProcessed(id string) error
	Close() error
}

// BoltLedger keeps processed event ids in a single bolt file
type BoltLedger struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBoltLedger opens or creates the ledger file and its bucket
func OpenBoltLedger(path string) (*BoltLedger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open webhook ledger %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(processedBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create webhook ledger bucket: %w", err)
	}
	return &BoltLedger{db: db, now: time.Now}, nil
}

func (l *BoltLedger) Seen(id string) (time.Time, bool, error) {
	var at time.Time
	var found bool
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(processedBucket)).Get([]byte(id))
		if v == nil {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return fmt.Errorf("corrupt ledger entry %s: %w", id, err)
		}
		at, found = t, true
		return nil
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return at, found, nil
}

func (l *BoltLedger) MarkProcessed(id string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(processedBucket))
		if b.Get([]byte(id)) != nil {
			return nil
		}
		return b.Put([]byte(id), []byte(l.now().UTC().Format(time.RFC3339Nano)))
	})
}

func (l *BoltLedger) Close() error {
	return l.db.Close()
}

// NopLedger treats every event as new, handlers must then be idempotent on their own
type NopLedger struct{}

func (NopLedger) Seen(string) (time.Time, bool, error) { return time.Time{}, false, nil }
func (NopLedger) MarkProcessed(string) error            { return nil }
func (NopLedger) Close() error                          { return nil }
