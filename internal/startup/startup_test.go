package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStartup(maxAttempts int) *Startup {
	s := New(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	s.backoffUnit = time.Millisecond
	return s
}

func recorder(events *[]string, name string, requires ...string) Func {
	return Func{
		ID:       name,
		Requires: requires,
		OnStart: func(context.Context) error {
			*events = append(*events, "start "+name)
			return nil
		},
		OnStop: func(context.Context) error {
			*events = append(*events, "stop "+name)
			return nil
		},
	}
}

func TestStartup_StartsParentsFirstAndStopsInReverse(t *testing.T) {
	var events []string
	s := testStartup(1)
	s.Add(
		recorder(&events, "server", "database", "consumer"),
		recorder(&events, "consumer", "database"),
		recorder(&events, "database"),
	)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start consumer", "start server"}, events)
	assert.Equal(t, StatusStarted, s.Status("server"))

	events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop server", "stop consumer", "stop database"}, events)
	assert.Equal(t, StatusStopped, s.Status("database"))
}

func TestStartup_RetriesFailedDependency(t *testing.T) {
	calls := 0
	s := testStartup(3)
	s.Add(Func{ID: "database", OnStart: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_GivesUpAfterMaxAttempts(t *testing.T) {
	s := testStartup(2)
	s.Add(Func{ID: "database", OnStart: func(context.Context) error {
		return errors.New("connection refused")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StatusFailed, s.Status("database"))
}

func TestStartup_DoesNotRestartStartedDependencies(t *testing.T) {
	dbStarts := 0
	kafkaCalls := 0
	s := testStartup(2)
	s.Add(
		Func{ID: "database", OnStart: func(context.Context) error { dbStarts++; return nil }},
		Func{ID: "consumer", Requires: []string{"database"}, OnStart: func(context.Context) error {
			kafkaCalls++
			if kafkaCalls == 1 {
				return errors.New("broker unavailable")
			}
			return nil
		}},
	)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, dbStarts)
	assert.Equal(t, 2, kafkaCalls)
}

func TestStartup_DetectsCycles(t *testing.T) {
	s := testStartup(1)
	s.Add(Func{ID: "a", Requires: []string{"b"}}, Func{ID: "b", Requires: []string{"a"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := testStartup(1)
	s.Add(Func{ID: "server", Requires: []string{"cache"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dependency "cache"`)
}

func TestStartup_StopContinuesPastErrors(t *testing.T) {
	var events []string
	s := testStartup(1)
	s.Add(
		recorder(&events, "database"),
		Func{ID: "consumer", Requires: []string{"database"}, OnStop: func(context.Context) error {
			return errors.New("close failed")
		}},
	)
	require.NoError(t, s.Start(context.Background()))
	events = nil

	err := s.Stop(context.Background())
	require.EqualError(t, err, "close failed")
	assert.Equal(t, []string{"stop database"}, events)
}

func TestStartup_CancelledDuringBackoff(t *testing.T) {
	s := testStartup(5)
	s.backoffUnit = time.Hour
	s.Add(Func{ID: "database", OnStart: func(context.Context) error { return errors.New("down") }})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}
