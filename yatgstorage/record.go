package yatgstorage

import (
	"maps"
	"strconv"
	"time"
)

// Profile is what the platform tells about a sender on every update.
type Profile struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsBot        bool
}

// UserRecord is the per-sender state of one bot.
//
// Data is the free-form blob handlers read and write. State and StateData
// back conversation flows (see yafsm).
type UserRecord struct {
	BotID            int64             `gorm:"primaryKey;autoIncrement:false" msgpack:"bot_id"`
	ID               int64             `gorm:"primaryKey;autoIncrement:false" msgpack:"id"`
	Username         string            `msgpack:"username"`
	FirstName        string            `msgpack:"first_name"`
	LastName         string            `msgpack:"last_name"`
	LanguageCode     string            `msgpack:"language_code"`
	SelectedLanguage string            `msgpack:"selected_language"`
	State            string            `msgpack:"state"`
	StateData        string            `msgpack:"state_data"`
	Data             map[string]string `gorm:"serializer:json" msgpack:"data"`
	FirstSeen        time.Time         `msgpack:"first_seen"`
	LastSeen         time.Time         `msgpack:"last_seen"`
}

// TableName pins the gorm table name.
func (UserRecord) TableName() string {
	return "yatgbot_users"
}

// NewUserRecord builds the default record of a sender seen for the first time.
func NewUserRecord(botID int64, profile Profile, now time.Time) *UserRecord {
	record := &UserRecord{
		BotID:     botID,
		ID:        profile.ID,
		Data:      make(map[string]string),
		FirstSeen: now.UTC(),
		LastSeen:  now.UTC(),
	}

	record.ApplyProfile(profile)

	return record
}

// ApplyProfile refreshes the platform-provided fields.
func (r *UserRecord) ApplyProfile(profile Profile) {
	r.Username = profile.Username
	r.FirstName = profile.FirstName
	r.LastName = profile.LastName

	if profile.LanguageCode != "" {
		r.LanguageCode = profile.LanguageCode
	}
}

// Clone returns a deep copy.
func (r *UserRecord) Clone() *UserRecord {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Data = maps.Clone(r.Data)

	if clone.Data == nil {
		clone.Data = make(map[string]string)
	}

	return &clone
}

// Language returns the language chosen by the user, or the one reported by the platform.
func (r *UserRecord) Language() string {
	if r.SelectedLanguage != "" {
		return r.SelectedLanguage
	}

	return r.LanguageCode
}

// Get returns a blob value.
func (r *UserRecord) Get(key string) (string, bool) {
	value, ok := r.Data[key]

	return value, ok
}

// Set writes a blob value.
func (r *UserRecord) Set(key string, value string) {
	if r.Data == nil {
		r.Data = make(map[string]string)
	}

	r.Data[key] = value
}

// Delete removes a blob value.
func (r *UserRecord) Delete(key string) {
	delete(r.Data, key)
}

// GetInt reads a blob value as int64; missing or malformed values read as 0.
func (r *UserRecord) GetInt(key string) int64 {
	value, err := strconv.ParseInt(r.Data[key], 10, 64)
	if err != nil {
		return 0
	}

	return value
}

// SetInt writes an int64 blob value.
func (r *UserRecord) SetInt(key string, value int64) {
	r.Set(key, strconv.FormatInt(value, 10))
}

// Increment adds delta to an int64 blob value and returns the result.
//
// Example usage:
//
//	hits := record.Increment("hits", 1)
func (r *UserRecord) Increment(key string, delta int64) int64 {
	value := r.GetInt(key) + delta

	r.SetInt(key, value)

	return value
}
