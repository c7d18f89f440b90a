// Package yaencoding converts Go values to and from MessagePack, optionally
// wrapped in base64 so the result fits string-only stores such as yacache.
//
// Example usage:
//
//	type Record struct {
//	    ID   int64
//	    Data map[string]string
//	}
//
//	text, err := yaencoding.EncodeMessagePackString(Record{ID: 1})
//	if err != nil {
//	    return err
//	}
//
//	record, err := yaencoding.DecodeMessagePackString[Record](text)
package yaencoding

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMessagePack serializes value using the MessagePack format.
func EncodeMessagePack(value any) ([]byte, yaerrors.Error) {
	bytes, err := msgpack.Marshal(value)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			fmt.Sprintf("[ENCODING] failed to marshal %T using message pack format", value),
		)
	}

	return bytes, nil
}

// DecodeMessagePack decodes MessagePack bytes into a new T.
func DecodeMessagePack[T any](bytes []byte) (*T, yaerrors.Error) {
	var res T

	if err := msgpack.Unmarshal(bytes, &res); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			fmt.Sprintf("[ENCODING] failed to unmarshal message pack into %T", res),
		)
	}

	return &res, nil
}

// EncodeMessagePackString is EncodeMessagePack followed by base64.
func EncodeMessagePackString(value any) (string, yaerrors.Error) {
	bytes, err := EncodeMessagePack(value)
	if err != nil {
		return "", err.Wrap("[ENCODING] failed to encode string")
	}

	return ToString(bytes), nil
}

// DecodeMessagePackString reverses EncodeMessagePackString.
func DecodeMessagePackString[T any](data string) (*T, yaerrors.Error) {
	bytes, err := ToBytes(data)
	if err != nil {
		return nil, err.Wrap("[ENCODING] failed to decode string")
	}

	return DecodeMessagePack[T](bytes)
}

// ToString converts a byte slice into a base64 string.
func ToString(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ToBytes decodes a base64 string into bytes.
func ToBytes(data string) ([]byte, yaerrors.Error) {
	bytes, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"[ENCODING] failed to decode base64",
		)
	}

	return bytes, nil
}
