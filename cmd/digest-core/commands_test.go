package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/digest-core/internal/core/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestRootHasRoles(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"api", "extractor", "summarizer", "all", "token", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("API_JWT_SECRET", "test-secret")

	out, err := execute(t, "token", "--subject", "ops", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewAdapter("test-secret").ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, int64(3600), claims.ExpiresAt-claims.IssuedAt)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("API_JWT_SECRET", "")

	_, err := execute(t, "token")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRoleRejectsArgs(t *testing.T) {
	_, err := execute(t, "api", "extra")
	assert.Error(t, err)
}
