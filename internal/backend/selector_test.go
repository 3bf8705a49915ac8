package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

func TestModelFor(t *testing.T) {
	cases := []struct {
		mode   models.Mode
		epochs int
		want   string
	}{
		{models.ModeLogs, 0, "llama3.2:3b"},
		{models.ModeFlows, 0, "llama3.2:3b"},
		{models.ModeLogs, 3, "bruteLlama3B_3ep_Q4_K_M.gguf:latest"},
		{models.ModeFlows, 10, "secLlama3B_10ep_Q4_K_M.gguf:latest"},
	}
	for _, tc := range cases {
		got, err := ModelFor(tc.mode, tc.epochs)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	for _, epochs := range []int{-1, 11} {
		_, err := ModelFor(models.ModeLogs, epochs)
		assert.ErrorIs(t, err, utils.ErrInvalidArgument)
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("anthropic")
	assert.ErrorIs(t, err, utils.ErrInvalidArgument)
}

func TestNewRulesProvider(t *testing.T) {
	b, err := New(context.Background(), models.ModeFlows, Options{Provider: ProviderRules}, utils.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, "rules", b.Name())
}

func TestNewOpenAIWithoutKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	_, err := New(context.Background(), models.ModeLogs, Options{Provider: ProviderOpenAI}, utils.DiscardLogger())
	if !errors.Is(err, utils.ErrMissingAPIKey) && !errors.Is(err, utils.ErrEnvFileNotFound) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
