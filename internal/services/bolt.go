package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements the handlers.Store interface using a BoltDB backend for
// storage of support sessions and their messages. It provides atomic
// operations for managing conversation logs through a key-value storage
// model: one bucket holds the session records, and each session owns a
// dedicated message bucket.
type BoltDB struct {
	db *bolt.DB
}

var sessionsBucket = []byte("sessions")

// NewBoltDB creates a new BoltDB instance with the specified file path. It
// initializes the database with required buckets and returns an error if the
// database cannot be opened or initialized. The database file is created
// with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})

	return BoltDB{db: db}, err
}

// Close releases the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

func messageBucketName(sessionID string) []byte {
	return []byte(fmt.Sprintf("session-%s", sessionID))
}

// recordID builds a bucket key from a sequence number and the record's
// original ID. The sequence is zero-padded so the byte order bbolt iterates
// in matches insertion order past the ninth record.
func recordID(seq uint64, id string) string {
	return fmt.Sprintf("%020d-%s", seq, id)
}

// Sessions retrieves all stored session records in reverse chronological
// order. It returns a slice of Session models or an error if the database
// operation fails.
func (b BoltDB) Sessions(context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var session models.Session
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			sessions = append(sessions, session)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(sessions)
	return sessions, nil
}

// Session retrieves a single session record by ID. It returns an error if
// the session does not exist.
func (b BoltDB) Session(_ context.Context, id string) (models.Session, error) {
	var session models.Session
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return fmt.Errorf("session %s is not found", id)
		}

		v := bkt.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("session %s is not found", id)
		}
		if err := json.Unmarshal(v, &session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	return session, err
}

// AddSession stores a new session record and creates its message bucket. It
// generates a unique ID for the session by combining a sequence number with
// the session's original ID, and returns the new ID or an error if the
// operation fails.
func (b BoltDB) AddSession(_ context.Context, session models.Session) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return nil
		}

		idPrefix, err := bkt.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		newID = recordID(idPrefix, session.ID)
		session.ID = newID

		_, err = tx.CreateBucketIfNotExists(messageBucketName(session.ID))
		if err != nil {
			return fmt.Errorf("failed to create message bucket: %w", err)
		}

		v, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		return bkt.Put([]byte(newID), v)
	})

	return newID, err
}

// UpdateSession modifies an existing session record. If the session doesn't
// exist, the operation is silently ignored. Returns an error if the
// marshaling or database operation fails.
func (b BoltDB) UpdateSession(_ context.Context, session models.Session) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return nil
		}

		v := bkt.Get([]byte(session.ID))
		if v == nil {
			return nil
		}

		v, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		return bkt.Put([]byte(session.ID), v)
	})
}

// Messages retrieves all messages associated with the specified session ID.
// It returns the messages in their stored order or an error if the database
// operation fails.
func (b BoltDB) Messages(_ context.Context, sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messageBucketName(sessionID))
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var message models.Message
			if err := json.Unmarshal(v, &message); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			messages = append(messages, message)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// AddMessage stores a new message in the specified session's message
// bucket. It generates a unique ID for the message by combining a sequence
// number with the message's original ID, and returns the new ID or an error
// if the operation fails.
func (b BoltDB) AddMessage(_ context.Context, sessionID string, message models.Message) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messageBucketName(sessionID))
		if bkt == nil {
			return nil
		}

		idPrefix, err := bkt.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		newID = recordID(idPrefix, message.ID)
		message.ID = newID

		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		return bkt.Put([]byte(newID), v)
	})

	return newID, err
}

// UpdateMessage replaces an existing message in the specified session's
// message bucket; the log stays append-only from the session's point of
// view, this is how streamed content and one-shot feedback attachment land
// on a stored record. If the message doesn't exist, the operation is
// silently ignored.
func (b BoltDB) UpdateMessage(_ context.Context, sessionID string, message models.Message) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messageBucketName(sessionID))
		if bkt == nil {
			return nil
		}

		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		return bkt.Put([]byte(message.ID), v)
	})
}
