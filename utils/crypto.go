package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	// Для ключей без предпочтений хеша openpgp выбирает RIPEMD160
	_ "golang.org/x/crypto/ripemd160"
)

// pgpMessageType заголовок armored-блока с зашифрованными данными
const pgpMessageType = "PGP MESSAGE"

// readKeyRing разбирает armored-ключ
func readKeyRing(armored string) (openpgp.EntityList, error) {
	if strings.TrimSpace(armored) == "" {
		return nil, errors.New("ключ PGP не задан")
	}
	keyRing, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать ключ PGP: %w", err)
	}
	return keyRing, nil
}

// PGPEncrypt шифрует строку публичным ключом и возвращает armored-сообщение
func PGPEncrypt(plain string, publicKey string) (string, error) {
	recipients, err := readKeyRing(publicKey)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	armored, err := armor.Encode(&out, pgpMessageType, nil)
	if err != nil {
		return "", fmt.Errorf("armor: %w", err)
	}

	w, err := openpgp.Encrypt(armored, recipients, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("шифрование PGP: %w", err)
	}
	if _, err := io.WriteString(w, plain); err != nil {
		return "", fmt.Errorf("шифрование PGP: %w", err)
	}

	// Порядок важен: сначала закрываем шифратор, затем armor
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("шифрование PGP: %w", err)
	}
	if err := armored.Close(); err != nil {
		return "", fmt.Errorf("armor: %w", err)
	}

	return out.String(), nil
}

// PGPDecrypt расшифровывает armored-сообщение приватным ключом
func PGPDecrypt(message string, privateKey string) (string, error) {
	keyRing, err := readKeyRing(privateKey)
	if err != nil {
		return "", err
	}

	block, err := armor.Decode(strings.NewReader(message))
	if err != nil {
		return "", fmt.Errorf("armor: %w", err)
	}
	if block.Type != pgpMessageType {
		return "", fmt.Errorf("ожидался блок %q, получен %q", pgpMessageType, block.Type)
	}

	md, err := openpgp.ReadMessage(block.Body, keyRing, nil, nil)
	if err != nil {
		return "", fmt.Errorf("расшифровка PGP: %w", err)
	}

	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return "", fmt.Errorf("расшифровка PGP: %w", err)
	}
	return string(plain), nil
}

// GenerateHMAC возвращает HMAC-SHA256 строки в hex
func GenerateHMAC(data string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	_, _ = io.WriteString(mac, data)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateHMAC сравнивает HMAC за постоянное время
func ValidateHMAC(data string, expected string, key []byte) bool {
	return hmac.Equal([]byte(GenerateHMAC(data, key)), []byte(expected))
}

// MaskTail оставляет видимыми только последние visible символов
func MaskTail(value string, visible int) string {
	runes := []rune(value)
	if len(runes) <= visible {
		return value
	}
	hidden := len(runes) - visible
	return strings.Repeat("*", hidden) + string(runes[hidden:])
}
