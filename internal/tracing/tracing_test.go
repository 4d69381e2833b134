package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "trainerbook-test", "", nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
	require.False(t, span.SpanContext().IsValid())
}

func TestShutdownClosesConnectionAfterProvider(t *testing.T) {
	var calls []string
	shutdownErr := errors.New("flush failed")
	shutdown := shutdownFunc(
		func(ctx context.Context) error {
			calls = append(calls, "provider")
			return shutdownErr
		},
		func() error {
			calls = append(calls, "conn")
			return nil
		},
	)

	err := shutdown(context.Background())
	require.ErrorIs(t, err, shutdownErr)
	require.Equal(t, []string{"provider", "conn"}, calls)
}
