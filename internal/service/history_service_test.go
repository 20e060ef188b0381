package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHistoryService_Append 测试追加自由文本台账
func TestHistoryService_Append(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	entry, err := env.history.Append(ctx, "PRS-001", "  Operator reported noise\x00 ")
	require.NoError(t, err)
	assert.Equal(t, "Operator reported noise", entry.Text)
	assert.True(t, entry.Timestamp.Equal(fixedNow))

	assert.Equal(t, []string{
		"Machine registered in the system.",
		"Operator reported noise",
	}, env.historyTexts(t, "PRS-001"))
	assert.Equal(t, integration.EventHistoryAppended, env.events.types()[1])
}

// TestHistoryService_AppendErrors 测试空文本、超长文本和未知机器
func TestHistoryService_AppendErrors(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	_, err := env.history.Append(ctx, "PRS-001", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.history.Append(ctx, "PRS-001", strings.Repeat("x", service.MaxHistoryTextLength+1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.history.Append(ctx, "NOPE", "text")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.history.List(ctx, "NOPE")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Len(t, env.historyTexts(t, "PRS-001"), 1)
}
