package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyIsDeterministic(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{
		"user_id": "user_1",
		"plan_id": "plan_basic",
	}

	first := g.GenerateKey(ScopeProviderSession, params)
	second := g.GenerateKey(ScopeProviderSession, params)

	assert.Equal(t, first, second)
	assert.Contains(t, first, string(ScopeProviderSession))
}

func TestGenerateKeyIgnoresParamOrder(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateKey(ScopeCancellation, map[string]interface{}{
		"subscription_id": "subs_1",
		"mode":            "at_period_end",
	})
	b := g.GenerateKey(ScopeCancellation, map[string]interface{}{
		"mode":            "at_period_end",
		"subscription_id": "subs_1",
	})

	assert.Equal(t, a, b)
}

func TestGenerateKeyVariesByScopeAndParams(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"subscription_id": "subs_1"}

	session := g.GenerateKey(ScopeProviderSession, params)
	cancel := g.GenerateKey(ScopeCancellation, params)
	assert.NotEqual(t, session, cancel)

	other := g.GenerateKey(ScopeCancellation, map[string]interface{}{"subscription_id": "subs_2"})
	assert.NotEqual(t, cancel, other)
}

func TestValidateKey(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"subscription_id": "subs_1"}
	key := g.GenerateKey(ScopeCancellation, params)

	assert.True(t, g.ValidateKey(ScopeCancellation, params, key))
	assert.False(t, g.ValidateKey(ScopeProviderSession, params, key))
	assert.False(t, g.ValidateKey(ScopeCancellation, map[string]interface{}{"subscription_id": "subs_2"}, key))
}
