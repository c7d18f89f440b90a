package yafsm_test

import (
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yafsm"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ExampleState struct {
	yafsm.BaseState[ExampleState]

	Param string `json:"param"`
}

type OtherState struct {
	yafsm.BaseState[OtherState]
}

func newRecord() *yatgstorage.UserRecord {
	return yatgstorage.NewUserRecord(1, yatgstorage.Profile{ID: 42}, time.Now())
}

func TestFSM_SetGetRoundTrip(t *testing.T) {
	t.Parallel()

	record := newRecord()

	require.NoError(t, yafsm.SetState(record, ExampleState{Param: "exampleparam"}))

	assert.Equal(t, "ExampleState", yafsm.GetState(record))
	assert.True(t, yafsm.Is(record, ExampleState{}))

	got, err := yafsm.GetStateData[ExampleState](record)
	require.NoError(t, err)
	assert.Equal(t, "exampleparam", got.Param)
}

func TestFSM_DefaultStateReturned(t *testing.T) {
	t.Parallel()

	record := newRecord()

	assert.True(t, yafsm.Is(record, yafsm.EmptyState{}))
	assert.Empty(t, yafsm.GetState(record))
}

func TestFSM_Mismatch(t *testing.T) {
	t.Parallel()

	record := newRecord()

	require.NoError(t, yafsm.SetState(record, OtherState{}))

	_, err := yafsm.GetStateData[ExampleState](record)
	assert.ErrorIs(t, err, yafsm.ErrStateMismatch)
}

func TestFSM_Clear(t *testing.T) {
	t.Parallel()

	record := newRecord()

	require.NoError(t, yafsm.SetState(record, ExampleState{Param: "x"}))

	yafsm.Clear(record)

	assert.True(t, yafsm.Is(record, yafsm.EmptyState{}))
	assert.Empty(t, record.StateData)

	err := yafsm.SetState(nil, ExampleState{})
	assert.ErrorIs(t, err, yafsm.ErrNoRecord)
}
