package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{Traces: true})
	require.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization=Bearer x , =skip, broken, tenant = ops ")
	require.Equal(t, map[string]string{"authorization": "Bearer x", "tenant": "ops"}, headers)
}

func TestStartOperationWithoutProvider(t *testing.T) {
	ctx, finish := StartOperation(context.Background(), "wrap", "swt1caller")
	require.NotNil(t, ctx)
	finish("PrematureThaw", errors.New("boom"))
	finish("", nil)
}
