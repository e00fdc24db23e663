package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/fix"
)

func Test_PostAndDispatch(t *testing.T) {
	router := NewRouter(zap.NewNop(), 16)

	var opens, reports int
	router.SessionOpenHandler = func(*fix.Message) error {
		opens++
		return nil
	}
	router.ReportHandler = func(*fix.Message) error {
		reports++
		return nil
	}

	require.NoError(t, router.Post(SessionOpenEvent, fix.NewMessage()))
	require.NoError(t, router.Post(ReportEvent, fix.NewMessage()))
	require.NoError(t, router.Post(ReportEvent, fix.NewMessage()))

	errStop := errors.New("stop")
	go router.Exec(context.Background(), func(context.Context) error {
		if opens+reports == 3 {
			return errStop
		}
		return nil
	})

	require.ErrorIs(t, <-router.Done(), errStop)
	require.Equal(t, 1, opens)
	require.Equal(t, 2, reports)
}

func Test_PostCapacityReached(t *testing.T) {
	router := NewRouter(zap.NewNop(), 1)

	require.NoError(t, router.Post(ReportEvent, fix.NewMessage()))
	require.Error(t, router.Post(ReportEvent, fix.NewMessage()))
}

func Test_ExecStopsOnContextCancel(t *testing.T) {
	router := NewRouter(zap.NewNop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	go router.Exec(ctx, func(context.Context) error { return nil })
	require.ErrorIs(t, <-router.Done(), context.Canceled)
}

func Test_DispatchRejectsWrongPayloadType(t *testing.T) {
	router := NewRouter(zap.NewNop(), 1)
	router.SessionOpenHandler = func(*fix.Message) error {
		t.Fatal("handler must not run for a non-message payload")
		return nil
	}

	require.Error(t, router.dispatch(event{id: SessionOpenEvent, data: 42}))
}

func Test_DispatchUnknownEventId(t *testing.T) {
	router := NewRouter(zap.NewNop(), 1)

	require.Error(t, router.dispatch(event{id: EventId(200), data: fix.NewMessage()}))
}
