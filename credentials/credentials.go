package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// DefaultCredentialsFile is the credentials filename inside the config dir.
const DefaultCredentialsFile = "credentials.yaml"

var (
	// ErrNoCredentials indicates no credentials have been stored yet.
	ErrNoCredentials = errors.New("no credentials found; run 'mycroft auth login'")
	// ErrEncryptionFailed indicates an encryption or decryption failure.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// Credentials holds the Gmail OAuth client and token. Secret fields are
// encrypted on disk; everything else is stored in the clear for inspection.
type Credentials struct {
	ClientID     string    `yaml:"client_id"`
	ClientSecret string    `yaml:"client_secret"`
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	TokenType    string    `yaml:"token_type,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
	LastUpdated  time.Time `yaml:"last_updated,omitempty"`
}

// Token converts the stored credentials into an oauth2 token.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// SetToken copies an oauth2 token into the credentials. A refresh response
// without a refresh token keeps the existing one.
func (c *Credentials) SetToken(tok *oauth2.Token) {
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.TokenType = tok.TokenType
	c.Expiry = tok.Expiry
}

// Store reads and writes encrypted credentials under the config directory.
type Store struct {
	credentialsDir string
	encryptionKey  []byte
}

// NewStore creates a store using the default key provider.
func NewStore(configDir string) (*Store, error) {
	provider, err := GetDefaultKeyProvider()
	if err != nil {
		return nil, err
	}
	return NewStoreWithKeyProvider(configDir, provider)
}

// NewStoreWithKeyProvider creates a store with an explicit key provider.
func NewStoreWithKeyProvider(configDir string, provider KeyProvider) (*Store, error) {
	key, err := provider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("obtaining encryption key: %w", err)
	}
	return &Store{credentialsDir: configDir, encryptionKey: key}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.credentialsDir, DefaultCredentialsFile)
}

// Save encrypts the secret fields and writes the credentials file.
func (s *Store) Save(creds *Credentials) error {
	if err := os.MkdirAll(s.credentialsDir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	storage := *creds
	storage.LastUpdated = time.Now()

	var err error
	if storage.ClientSecret != "" {
		if storage.ClientSecret, err = s.encrypt(storage.ClientSecret); err != nil {
			return fmt.Errorf("encrypting client secret: %w", err)
		}
	}
	if storage.AccessToken != "" {
		if storage.AccessToken, err = s.encrypt(storage.AccessToken); err != nil {
			return fmt.Errorf("encrypting access token: %w", err)
		}
	}
	if storage.RefreshToken != "" {
		if storage.RefreshToken, err = s.encrypt(storage.RefreshToken); err != nil {
			return fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	data, err := yaml.Marshal(&storage)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// Load reads and decrypts the credentials file.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.ClientSecret != "" {
		if creds.ClientSecret, err = s.decrypt(creds.ClientSecret); err != nil {
			return nil, fmt.Errorf("decrypting client secret: %w", err)
		}
	}
	if creds.AccessToken != "" {
		if creds.AccessToken, err = s.decrypt(creds.AccessToken); err != nil {
			return nil, fmt.Errorf("decrypting access token: %w", err)
		}
	}
	if creds.RefreshToken != "" {
		if creds.RefreshToken, err = s.decrypt(creds.RefreshToken); err != nil {
			return nil, fmt.Errorf("decrypting refresh token: %w", err)
		}
	}
	return &creds, nil
}

// Delete removes stored credentials. Deleting absent credentials is not an
// error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

// Exists reports whether a credentials file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

// encrypt encrypts a string using AES-GCM.
func (s *Store) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts an AES-GCM encrypted string.
func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decrypting: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}

// MaskToken returns a display-safe form of a secret.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
