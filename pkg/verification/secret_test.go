package verification

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomGenerator(t *testing.T) {
	gen := RandomGenerator{}

	t.Run("SecretEntropy", func(t *testing.T) {
		secret, err := gen.NewSecret()
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(secret)
		require.NoError(t, err)
		assert.Len(t, raw, 32)
	})

	t.Run("SecretsDiffer", func(t *testing.T) {
		a, err := gen.NewSecret()
		require.NoError(t, err)
		b, err := gen.NewSecret()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("CodeFormat", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			code, err := gen.NewCode()
			require.NoError(t, err)
			assert.Regexp(t, `^[0-9]{6}$`, code)
		}
	})
}

func TestHashSecret(t *testing.T) {
	assert.Equal(t, HashSecret("abc"), HashSecret("abc"))
	assert.NotEqual(t, HashSecret("abc"), HashSecret("abd"))
	assert.Len(t, HashSecret("abc"), 64)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashSecret("abc"))
}

func TestFlowType(t *testing.T) {
	for _, f := range AllFlowTypes {
		parsed, err := ParseFlowType(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
	_, err := ParseFlowType("sms")
	assert.ErrorIs(t, err, ErrInvalidFlowType)

	assert.True(t, FlowEmailVerification.UsesCode())
	assert.False(t, FlowPasswordReset.UsesCode())
}

func TestPolicies_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicies().Validate())

	missing := DefaultPolicies()
	delete(missing, FlowMagicLink)
	assert.ErrorIs(t, missing.Validate(), ErrInvalidFlowType)

	zero := DefaultPolicies()
	zero[FlowEmailChange] = Policy{}
	assert.Error(t, zero.Validate())
}
