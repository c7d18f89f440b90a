package yatgstorage

import "errors"

var (
	ErrInvalidSender   = errors.New("sender id must not be zero")
	ErrForeignRecord   = errors.New("record belongs to another bot")
	ErrCorruptedRecord = errors.New("stored record is corrupted")
	ErrStorageClosed   = errors.New("storage is closed")
)
