package yatgstorage

import (
	"context"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserStorage stores one row per (bot, sender) in the yatgbot_users table.
type GormUserStorage struct {
	poolDB *gorm.DB
}

// NewGormUserStorage runs the migrations for UserRecord and returns the store.
//
// Example usage:
//
//	poolDB, _ := gorm.Open(sqlite.Open("bot.db"), &gorm.Config{})
//	users, err := yatgstorage.NewGormUserStorage(poolDB)
func NewGormUserStorage(poolDB *gorm.DB) (*GormUserStorage, yaerrors.Error) {
	if err := poolDB.AutoMigrate(&UserRecord{}); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"failed to make auto migrate",
		)
	}

	return &GormUserStorage{poolDB: poolDB}, nil
}

// GetOrCreate inserts the default row when absent (ON CONFLICT DO NOTHING) and
// reads back whichever row won.
func (g *GormUserStorage) GetOrCreate(
	ctx context.Context,
	botID int64,
	profile Profile,
) (*UserRecord, yaerrors.Error) {
	if profile.ID == 0 {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrInvalidSender, "[GORM] failed to get user")
	}

	db := g.poolDB.WithContext(ctx)

	if err := db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(NewUserRecord(botID, profile, time.Now())).Error; err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"[GORM] failed to create user",
		)
	}

	var record UserRecord

	if err := db.
		Where(&UserRecord{BotID: botID, ID: profile.ID}).
		Take(&record).Error; err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"[GORM] failed to fetch user",
		)
	}

	if record.Data == nil {
		record.Data = make(map[string]string)
	}

	return &record, nil
}

func (g *GormUserStorage) Save(ctx context.Context, record *UserRecord) yaerrors.Error {
	if record == nil || record.ID == 0 {
		return yaerrors.FromError(http.StatusBadRequest, ErrInvalidSender, "[GORM] failed to save user")
	}

	if err := g.poolDB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(record.Clone()).Error; err != nil {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"[GORM] failed to save user",
		)
	}

	return nil
}

// Close closes the underlying connection pool.
func (g *GormUserStorage) Close() yaerrors.Error {
	sqlDB, err := g.poolDB.DB()
	if err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "[GORM] failed to get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "[GORM] failed to close")
	}

	return nil
}
