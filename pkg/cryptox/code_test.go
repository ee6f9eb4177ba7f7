package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	t.Parallel()

	t.Run("produces n digits with padding", func(t *testing.T) {
		for range 50 {
			code, err := GenerateNumericCode(6)
			require.NoError(t, err)
			require.Len(t, code, 6)
			require.Regexp(t, `^[0-9]{6}$`, code)
		}
	})

	t.Run("rejects invalid lengths", func(t *testing.T) {
		_, err := GenerateNumericCode(0)
		require.Error(t, err)
		_, err = GenerateNumericCode(11)
		require.Error(t, err)
	})
}

func TestHashAndVerifyCode(t *testing.T) {
	t.Parallel()

	hash, err := HashCode("123456")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, VerifyCodeHash("123456", hash))
	require.ErrorIs(t, VerifyCodeHash("654321", hash), ErrCodeMismatch)
}

func TestVerifyCodeHashRejectsGarbage(t *testing.T) {
	t.Parallel()

	require.Error(t, VerifyCodeHash("123456", "not-a-phc-hash"))
	require.Error(t, VerifyCodeHash("123456", "$argon2i$v=19$m=1,t=1,p=1$AA$AA"))
}

func TestHashCodeSaltsAreUnique(t *testing.T) {
	t.Parallel()

	h1, err := HashCode("000000")
	require.NoError(t, err)
	h2, err := HashCode("000000")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
