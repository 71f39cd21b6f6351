package addr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftmail/backend/internal/domain"
)

func TestGenerateRandom(t *testing.T) {
	g := NewGenerator([]string{"drift.mail", "inbox.dev"}, 12)

	address, err := g.Generate("", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(address, "@drift.mail"))

	localPart := strings.TrimSuffix(address, "@drift.mail")
	assert.Len(t, localPart, 12)
	assert.NoError(t, domain.ValidateLocalPart(localPart))

	// 随机模式下两次生成几乎不可能相同
	other, err := g.Generate("", "")
	require.NoError(t, err)
	assert.NotEqual(t, address, other)
}

func TestGenerateWithLocalPart(t *testing.T) {
	g := NewGenerator([]string{"drift.mail"}, 12)

	address, err := g.Generate("Alice.Test", "")
	require.NoError(t, err)
	assert.Equal(t, "alice.test@drift.mail", address)

	_, err = g.Generate("has space", "")
	assert.ErrorIs(t, err, domain.ErrInvalidLocalPart)
}

func TestGenerateDomainSelection(t *testing.T) {
	g := NewGenerator([]string{"drift.mail", "inbox.dev"}, 12)

	address, err := g.Generate("bob", "inbox.dev")
	require.NoError(t, err)
	assert.Equal(t, "bob@inbox.dev", address)

	_, err = g.Generate("bob", "evil.example")
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)
}

func TestGenerateNoDomainsConfigured(t *testing.T) {
	g := NewGenerator(nil, 12)

	_, err := g.Generate("bob", "")
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)
}

func TestGenerateTokenLength(t *testing.T) {
	g := NewGenerator([]string{"drift.mail"}, 8)

	address, err := g.Generate("", "")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSuffix(address, "@drift.mail"), 8)
}
