// Package yafsm stores conversation states inside a sender's UserRecord.
//
// A state is a struct embedding BaseState; its type name is the state name
// and its JSON encoding is the state data. Handlers change the state on the
// record they receive, and the dispatcher persists it with the record.
//
// Example usage:
//
//	type AwaitingName struct {
//		yafsm.BaseState[AwaitingName]
//
//		Attempts int `json:"attempts"`
//	}
//
//	_ = yafsm.SetState(data.User, AwaitingName{Attempts: 1})
//	...
//	state, err := yafsm.GetStateData[AwaitingName](data.User)
package yafsm

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

var (
	ErrNoRecord      = errors.New("no user record")
	ErrStateMismatch = errors.New("stored state differs from requested")
)

type State interface {
	StateName() string
}

type BaseState[T State] struct{}

func (BaseState[T]) StateName() string {
	var zero T

	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}

// EmptyState is the state of a record with no conversation in progress.
type EmptyState struct {
	BaseState[EmptyState]
}

// StateName of EmptyState is the empty string, the zero value of UserRecord.State.
func (EmptyState) StateName() string {
	return ""
}

// SetState stores state and its JSON data on record.
func SetState(record *yatgstorage.UserRecord, state State) yaerrors.Error {
	if record == nil {
		return yaerrors.FromError(http.StatusBadRequest, ErrNoRecord, "failed to set state")
	}

	val, err := json.Marshal(state)
	if err != nil {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"failed to marshal state data",
		)
	}

	record.State = state.StateName()
	record.StateData = string(val)

	return nil
}

// GetState returns the state name of record; an empty string is EmptyState.
func GetState(record *yatgstorage.UserRecord) string {
	if record == nil {
		return ""
	}

	return record.State
}

// Is reports whether record is currently in state.
func Is(record *yatgstorage.UserRecord, state State) bool {
	return GetState(record) == state.StateName()
}

// GetStateData decodes the data of record into T. It fails with
// ErrStateMismatch when record holds another state.
func GetStateData[T State](record *yatgstorage.UserRecord) (*T, yaerrors.Error) {
	var res T

	if record == nil {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrNoRecord, "failed to get state data")
	}

	if record.State != res.StateName() {
		return nil, yaerrors.FromError(
			http.StatusConflict,
			ErrStateMismatch,
			"failed to get state data of "+res.StateName()+", stored "+record.State,
		)
	}

	if record.StateData == "" {
		return &res, nil
	}

	if err := json.Unmarshal([]byte(record.StateData), &res); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"failed to unmarshal state data",
		)
	}

	return &res, nil
}

// Clear returns record to EmptyState.
func Clear(record *yatgstorage.UserRecord) {
	if record == nil {
		return
	}

	record.State = ""
	record.StateData = ""
}
