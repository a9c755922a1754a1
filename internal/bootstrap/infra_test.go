package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfra_CloseSkipsUnopened(t *testing.T) {
	infra := &Infra{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	assert.NoError(t, infra.Close(context.Background()))
}
