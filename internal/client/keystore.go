package client

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const (
	// KeyringService 系统钥匙串中的服务名
	KeyringService = "idea2repo"
	apiKeyItem     = "api_key"
)

// ErrNoAPIKey 钥匙串中没有保存 API key
var ErrNoAPIKey = errors.New("api key not found in keyring")

// KeyStore 在系统钥匙串中保存服务端 API key
type KeyStore struct {
	ring keyring.Keyring
}

// OpenKeyStore 打开系统钥匙串
func OpenKeyStore() (*KeyStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: KeyringService,
		// 不使用需要交互输入口令的文件后端
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyStore(ring), nil
}

func NewKeyStore(ring keyring.Keyring) *KeyStore {
	return &KeyStore{ring: ring}
}

func (s *KeyStore) Save(apiKey string) error {
	if apiKey == "" {
		return errors.New("API key is empty")
	}
	return s.ring.Set(keyring.Item{
		Key:         apiKeyItem,
		Data:        []byte(apiKey),
		Label:       "Idea2Repo API key",
		Description: "X-API-Key used by the idea2repo CLI",
	})
}

// SaveFrom 保存参数或环境变量中的 key，两者都为空时报错而不写入
func (s *KeyStore) SaveFrom(flagValue, envValue string) error {
	key := flagValue
	if key == "" {
		key = envValue
	}
	if key == "" {
		return errors.New("no API key given: pass --api-key or set API_KEY")
	}
	return s.Save(key)
}

func (s *KeyStore) Load() (string, error) {
	item, err := s.ring.Get(apiKeyItem)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

// ResolveAPIKey 依次取参数、环境变量、钥匙串中的 key；store 可为 nil
func ResolveAPIKey(flagValue, envValue string, store *KeyStore) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if envValue != "" {
		return envValue, nil
	}
	if store == nil {
		return "", ErrNoAPIKey
	}
	return store.Load()
}
