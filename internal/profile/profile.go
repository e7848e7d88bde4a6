// Package profile stores registration records and the supplementary
// (medical) information shared with helpers in private messages. It is
// consulted by the SOS engine through the SupplementaryInfo lookup; absence
// of information is an expected state, not an error.
package profile

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
)

// Field is one labeled piece of supplementary information.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Info is the ordered supplementary information on file for a participant.
// Empty means nothing is on file.
type Info []Field

// Registration is the bookkeeping row written on /start.
type Registration struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	ChatID    int64  `json:"chatId"`
	AtMs      int64  `json:"atMs"`
}

// Keyspace layout:
// - sos/profile/reg/{user_be8}
// - sos/profile/info/{user_be8}/{label}
var (
	regPrefix  = []byte("sos/profile/reg/")
	infoPrefix = []byte("sos/profile/info/")
)

func keyReg(userID int64) []byte {
	k := make([]byte, 0, len(regPrefix)+8)
	k = append(k, regPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(userID))
	return append(k, b[:]...)
}

func keyInfoPrefix(userID int64) []byte {
	k := make([]byte, 0, len(infoPrefix)+9)
	k = append(k, infoPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(userID))
	k = append(k, b[:]...)
	return append(k, '/')
}

func keyInfo(userID int64, label string) []byte {
	return append(keyInfoPrefix(userID), label...)
}

// Store persists profiles in Pebble.
type Store struct {
	db *pebblestore.DB
}

// NewStore returns a Store over the given database.
func NewStore(db *pebblestore.DB) *Store { return &Store{db: db} }

// PutRegistration records (or refreshes) a participant registration.
func (s *Store) PutRegistration(ctx context.Context, r Registration) error {
	if r.AtMs == 0 {
		r.AtMs = time.Now().UnixMilli()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Set(keyReg(r.UserID), b)
}

// GetRegistration returns the stored registration, or ok=false.
func (s *Store) GetRegistration(ctx context.Context, userID int64) (Registration, bool, error) {
	b, err := s.db.Get(keyReg(userID))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Registration{}, false, nil
		}
		return Registration{}, false, err
	}
	var r Registration
	if err := json.Unmarshal(b, &r); err != nil {
		return Registration{}, false, err
	}
	return r, true, nil
}

// PutInfo stores one labeled supplementary value for a participant,
// overwriting any previous value under the same label.
func (s *Store) PutInfo(ctx context.Context, userID int64, label, value string) error {
	if label == "" {
		return errors.New("profile: empty label")
	}
	return s.db.Set(keyInfo(userID, label), []byte(value))
}

// SupplementaryInfo returns everything on file for a participant, ordered by
// label. An empty result means no information on file.
func (s *Store) SupplementaryInfo(ctx context.Context, userID int64) (Info, error) {
	prefix := keyInfoPrefix(userID)
	hi := append(append([]byte{}, prefix...), 0xFF)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var info Info
	for ok := it.First(); ok; ok = it.Next() {
		k := it.Key()
		if len(k) <= len(prefix) {
			continue
		}
		info = append(info, Field{
			Label: string(k[len(prefix):]),
			Value: string(append([]byte(nil), it.Value()...)),
		})
	}
	return info, nil
}
