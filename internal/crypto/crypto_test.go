package crypto

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T, secret string) *Cipher {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c, err := NewCipher(secret, logger)
	require.NoError(t, err)
	return c
}

func TestCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t, "unit-test-secret")

	for _, plaintext := range []string{
		"gsk_abc123",
		"a",
		"a longer credential with spaces and ünïcôde 🗝",
	} {
		encrypted := c.Encrypt(plaintext)
		require.NotEmpty(t, encrypted)
		assert.NotEqual(t, plaintext, encrypted)
		assert.Equal(t, plaintext, c.Decrypt(encrypted))
	}
}

func TestCipherEmptyInput(t *testing.T) {
	c := newTestCipher(t, "unit-test-secret")

	assert.Empty(t, c.Encrypt(""))
	assert.Empty(t, c.Decrypt(""))
}

func TestCipherDecryptGarbage(t *testing.T) {
	c := newTestCipher(t, "unit-test-secret")

	assert.Empty(t, c.Decrypt("not base64!!!"))
	assert.Empty(t, c.Decrypt("dG9vc2hvcnQ")) // valid base64, shorter than a nonce
}

func TestCipherWrongKey(t *testing.T) {
	c1 := newTestCipher(t, "key-one")
	c2 := newTestCipher(t, "key-two")

	encrypted := c1.Encrypt("gsk_secret")
	require.NotEmpty(t, encrypted)
	assert.Empty(t, c2.Decrypt(encrypted))
}

func TestCipherNondeterministicNonce(t *testing.T) {
	c := newTestCipher(t, "unit-test-secret")

	first := c.Encrypt("same plaintext")
	second := c.Encrypt("same plaintext")
	assert.NotEqual(t, first, second)
}
