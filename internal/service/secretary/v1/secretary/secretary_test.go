package secretary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokerroom/internal/config"
)

func newTestSecretary(t *testing.T, key string) *Secretary {
	sec, err := NewSecretaryService(&config.SecretConfig{SecretKey: key})
	require.NoError(t, err)
	return sec
}

func TestEncodeDecode(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	tests := []struct {
		name string
		data string
	}{
		{"simple", "user1"},
		{"empty", ""},
		{"unicode", "игрок_m฿"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := sec.Encode(tt.data)
			decoded, err := sec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.data, decoded)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	// login lookups rely on ciphering the same plaintext to the same ciphertext
	assert.Equal(t, sec.Encode("alice"), sec.Encode("alice"))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	_, err := sec.Decode("not-hex")
	assert.Error(t, err)
	_, err = sec.Decode("deadbeef")
	assert.Error(t, err)
}

func TestNewTokenRoundTrip(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	accessToken, userID, err := sec.NewToken()
	require.NoError(t, err)
	gotUserID, err := sec.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUserID)
}

func TestGetTokenForUser(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	accessToken, err := sec.GetTokenForUser("some-user-id")
	require.NoError(t, err)
	gotUserID, err := sec.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "some-user-id", gotUserID)
}

func TestValidateTokenWrongKey(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	other := newTestSecretary(t, "another_key")
	accessToken, _, err := sec.NewToken()
	require.NoError(t, err)
	_, err = other.ValidateToken(accessToken)
	assert.Error(t, err)
}

func TestValidateTokenMalformed(t *testing.T) {
	sec := newTestSecretary(t, "jds__63h3_7ds")
	_, err := sec.ValidateToken("not.a.token")
	assert.Error(t, err)
}
