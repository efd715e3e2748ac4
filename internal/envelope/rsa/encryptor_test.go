package rsa

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"sync"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwe"
	"github.com/stretchr/testify/require"

	"github.com/jetstack/securechat/internal/envelope"
)

const testKeyID = "chris"

// smallRSAKey1024 is a hardcoded 1024-bit RSA public key in PEM format (PKIX)
// used for testing key size validation. This key is intentionally weak and should
// only be used for testing purposes.
// This is hardcoded rather than generated in order to save compute, and also on the
// assumption that future Go releases might restrict the ability to generate such small keys.
const smallRSAKey1024 = `-----BEGIN PUBLIC KEY-----
MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQDCNDoCM0OBt4HFxFxyU50FYsuZ
gK+lgel/Jlzb+ghkWpCL1Vk3Au7aet4KxNxQh5dFRxtMU7pe6fC5eZtdL3+0TCUu
XAUVgMhTRn3ZXlEmJXosuiFQ2y4+3nbWL51OxXRf3jsieSVqr4fbceakuOKXp4vX
wgiguV3/XqaysHs1uwIDAQAB
-----END PUBLIC KEY-----`

var (
	testKeyOnce      sync.Once
	internalTestKey  *rsa.PrivateKey
	internalOtherKey *rsa.PrivateKey
)

// testKeys generates and returns a pair of singleton RSA private keys for testing purposes,
// to avoid needing to generate new keys for each test. The second key stands in for another party.
func testKeys() (*rsa.PrivateKey, *rsa.PrivateKey) {
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, minRSAKeySize)
		if err != nil {
			panic("failed to generate test RSA key: " + err.Error())
		}

		other, err := rsa.GenerateKey(rand.Reader, minRSAKeySize)
		if err != nil {
			panic("failed to generate test RSA key: " + err.Error())
		}

		internalTestKey = key
		internalOtherKey = other
	})

	return internalTestKey, internalOtherKey
}

func testKey() *rsa.PrivateKey {
	key, _ := testKeys()
	return key
}

func smallPublicKey(t *testing.T) *rsa.PublicKey {
	t.Helper()

	block, _ := pem.Decode([]byte(smallRSAKey1024))
	require.NotNil(t, block, "failed to decode PEM block")

	// NB: a future Go update might restrict the ability to parse small keys;
	// if that happens, this test will need to be removed or changed.
	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err, "failed to parse RSA public key")

	rsaPubKey, ok := pubKey.(*rsa.PublicKey)
	require.True(t, ok, "key should be an RSA public key")

	return rsaPubKey
}

func TestNewEncryptor_ValidKeys(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"2048 bits", 2048},
		{"3072 bits", 3072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := rsa.GenerateKey(rand.Reader, tt.keySize)
			require.NoError(t, err)

			enc, err := NewEncryptor(testKeyID, &key.PublicKey)
			require.NoError(t, err)
			require.NotNil(t, enc)
		})
	}
}

func TestNewEncryptor_RejectsSmallKeys(t *testing.T) {
	enc, err := NewEncryptor(testKeyID, smallPublicKey(t))
	require.Error(t, err)
	require.Nil(t, enc)
	require.Contains(t, err.Error(), "must be at least 2048 bits")
}

func TestNewEncryptor_NilKey(t *testing.T) {
	enc, err := NewEncryptor(testKeyID, nil)
	require.Error(t, err)
	require.Nil(t, enc)
	require.Contains(t, err.Error(), "cannot be nil")
}

func TestNewEncryptor_EmptyKeyID(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor("", &key.PublicKey)
	require.Error(t, err)
	require.Nil(t, enc)
	require.Contains(t, err.Error(), "keyID cannot be empty")
}

func TestNewDecryptor_NilKey(t *testing.T) {
	dec, err := NewDecryptor(testKeyID, nil)
	require.Error(t, err)
	require.Nil(t, dec)
	require.Contains(t, err.Error(), "cannot be nil")
}

func TestEncrypt_VariousDataSizes(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name     string
		dataSize int
	}{
		{"small (10 bytes)", 10},
		{"medium (1 KB)", 1024},
		{"large (1 MB)", 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.dataSize)
			_, err := rand.Read(data)
			require.NoError(t, err)

			result, err := enc.Encrypt(data)
			require.NoError(t, err)
			require.NotNil(t, result)
			require.Equal(t, EncryptionType, result.Type, "Type should be JWE-RSA")

			// Verify JWE Compact Serialization format (5 base64url parts separated by dots)
			parts := strings.Split(string(result.Data), ".")
			require.Len(t, parts, 5, "JWE Compact Serialization should have 5 parts")

			for i, part := range parts {
				require.NotEmpty(t, part, "JWE part %d should not be empty", i)

				_, err = base64.RawURLEncoding.DecodeString(part)
				require.NoError(t, err, "JWE part %d should be valid base64url: %s", i, part)
			}
		})
	}
}

func TestEncrypt_EmptyData(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	result, err := enc.Encrypt([]byte{})
	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "cannot be empty")
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	data := []byte("test data for encryption")

	result1, err := enc.Encrypt(data)
	require.NoError(t, err)

	result2, err := enc.Encrypt(data)
	require.NoError(t, err)

	// Results should be different due to random nonces and RSA-OAEP randomness
	require.NotEqual(t, result1.Data, result2.Data, "Encrypting the same data twice should produce different JWE outputs")
}

func TestEncrypt_JWEHeaders(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	encrypted, err := enc.Encrypt([]byte("test data"))
	require.NoError(t, err)

	msg, err := jwe.Parse(encrypted.Data)
	require.NoError(t, err)

	headers := msg.ProtectedHeaders()

	kidHeader, ok := headers.KeyID()
	require.True(t, ok, "JWE should contain 'kid' header")
	require.Equal(t, testKeyID, kidHeader, "JWE 'kid' header should match the encryptor's key ID")

	// the raw jwx API should be able to open what we produce
	decrypted, err := jwe.Decrypt(encrypted.Data, jwe.WithKey(jwa.RSA_OAEP_256(), key))
	require.NoError(t, err)
	require.Equal(t, []byte("test data"), decrypted)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	dec, err := NewDecryptor(testKeyID, key)
	require.NoError(t, err)

	originalData := []byte("Hi nayana! Got your message loud and clear!")

	encrypted, err := enc.Encrypt(originalData)
	require.NoError(t, err)

	decrypted, err := dec.Decrypt(encrypted)
	require.NoError(t, err, "Decryption should succeed with the correct private key")
	require.Equal(t, originalData, decrypted, "Decrypted data should match original data")
}

func TestDecrypt_WrongKey(t *testing.T) {
	key, other := testKeys()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	// no key ID, so the kid check doesn't short-circuit and the key unwrap itself must fail
	dec, err := NewDecryptor("", other)
	require.NoError(t, err)

	encrypted, err := enc.Encrypt([]byte("test data"))
	require.NoError(t, err)

	decrypted, err := dec.Decrypt(encrypted)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDecryption)
	require.Nil(t, decrypted)
}

func TestDecrypt_WrongKeyID(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	dec, err := NewDecryptor("nayana", key)
	require.NoError(t, err)

	encrypted, err := enc.Encrypt([]byte("test data"))
	require.NoError(t, err)

	_, err = dec.Decrypt(encrypted)
	require.ErrorIs(t, err, ErrDecryption)
	require.Contains(t, err.Error(), `message is for key "chris"`)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := testKey()

	enc, err := NewEncryptor(testKeyID, &key.PublicKey)
	require.NoError(t, err)

	dec, err := NewDecryptor(testKeyID, key)
	require.NoError(t, err)

	encrypted, err := enc.Encrypt([]byte("test data"))
	require.NoError(t, err)

	// flip a byte in the ciphertext part, keeping it valid base64url
	parts := strings.Split(string(encrypted.Data), ".")
	ciphertext, err := base64.RawURLEncoding.DecodeString(parts[3])
	require.NoError(t, err)
	ciphertext[0] ^= 0xFF
	parts[3] = base64.RawURLEncoding.EncodeToString(ciphertext)

	_, err = dec.Decrypt(&envelope.EncryptedData{
		Data: []byte(strings.Join(parts, ".")),
		Type: EncryptionType,
	})
	require.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_RejectsOtherTypes(t *testing.T) {
	key := testKey()

	dec, err := NewDecryptor(testKeyID, key)
	require.NoError(t, err)

	_, err = dec.Decrypt(&envelope.EncryptedData{Data: []byte("x"), Type: OAEPEncryptionType})
	require.ErrorIs(t, err, ErrWrongType)

	_, err = dec.Decrypt(nil)
	require.ErrorContains(t, err, "cannot be nil")
}
