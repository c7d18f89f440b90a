// Package yatgstorage persists what a bot remembers between updates: one
// UserRecord per sender and the long-polling offset cursor.
//
// The dispatcher only talks to the UserStorage and OffsetStorage interfaces.
// Three user store back-ends are provided:
//
//   - MemoryUserStorage: process-local map, for tests and throwaway bots.
//   - GormUserStorage: SQL table through gorm (sqlite, postgres, ...).
//   - CacheUserStorage: one MessagePack blob per sender in yacache (Redis or memory),
//     optionally AES encrypted.
//
// # Layout in the cache
//
//   - yatgbot:user:<bot_id>:<sender_id>  - base64(msgpack(UserRecord))
//   - yatgbot:offset:<bot_id>            - next update offset to request
//
// Every GetOrCreate is atomic per sender: concurrent first sights of the same
// sender produce exactly one record.
package yatgstorage

import (
	"context"
	"fmt"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// Structured-logging keys.
const (
	LoggerBotID    = "bot_id"
	LoggerSenderID = "sender_id"
	LoggerKey      = "storage_key"
)

// UserStorage maps a sender to its persisted UserRecord.
//
// Records returned by GetOrCreate are private copies: mutating them has no
// effect until Save is called.
type UserStorage interface {
	// GetOrCreate returns the record of profile.ID as seen by botID, creating it
	// from profile when absent.
	GetOrCreate(ctx context.Context, botID int64, profile Profile) (*UserRecord, yaerrors.Error)

	// Save persists record under record.BotID and record.ID, replacing the stored version.
	Save(ctx context.Context, record *UserRecord) yaerrors.Error

	// Close flushes pending writes and releases resources owned by the store.
	Close() yaerrors.Error
}

// OffsetStorage persists the long-polling cursor of every bot.
type OffsetStorage interface {
	// LoadOffset returns the next offset to request, or 0 when none was stored.
	LoadOffset(ctx context.Context, botID int64) (int64, yaerrors.Error)

	// StoreOffset records the next offset to request.
	StoreOffset(ctx context.Context, botID int64, offset int64) yaerrors.Error
}

func userKey(botID int64, senderID int64) string {
	return fmt.Sprintf("yatgbot:user:%d:%d", botID, senderID)
}

func offsetKey(botID int64) string {
	return fmt.Sprintf("yatgbot:offset:%d", botID)
}
