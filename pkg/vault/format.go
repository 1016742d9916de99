// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Armor format ($ANSIBLE_VAULT;1.1;AES256): PBKDF2-SHA256 derives a cipher
// key, an HMAC key and an IV from the password; the padded plaintext is
// encrypted with AES-256-CTR and authenticated with HMAC-SHA256 over the
// ciphertext. The 1.2 header additionally names a vault id.
const (
	formatID     = "$ANSIBLE_VAULT"
	version11    = "1.1"
	version12    = "1.2"
	cipherAES256 = "AES256"

	kdfIterations = 10000
	saltLen       = 32
	keyLen        = 32
	ivLen         = 16
	armorWidth    = 80
)

// IsArmored reports whether the text looks like a vault envelope.
func IsArmored(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), formatID+";")
}

func deriveKeys(password, salt []byte) (cipherKey, hmacKey, iv []byte) {
	derived := pbkdf2.Key(password, salt, kdfIterations, 2*keyLen+ivLen, sha256.New)
	return derived[:keyLen], derived[keyLen : 2*keyLen], derived[2*keyLen:]
}

// Encrypt seals plaintext with the given secret and returns the armored
// envelope. The secret's ID, when set, is recorded in a 1.2 header.
func Encrypt(plaintext string, secret Secret) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %s", err)
	}
	return encryptWithSalt([]byte(plaintext), secret, salt)
}

func encryptWithSalt(plaintext []byte, secret Secret, salt []byte) (string, error) {
	cipherKey, hmacKey, iv := deriveKeys(secret.Password, salt)

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return "", fmt.Errorf("initializing cipher: %s", err)
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, padded)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)

	body := strings.Join([]string{
		hex.EncodeToString(salt),
		hex.EncodeToString(mac.Sum(nil)),
		hex.EncodeToString(ciphertext),
	}, "\n")

	header := strings.Join([]string{formatID, version11, cipherAES256}, ";")
	if secret.ID != "" {
		header = strings.Join([]string{formatID, version12, cipherAES256, secret.ID}, ";")
	}

	return header + "\n" + foldHex(hex.EncodeToString([]byte(body))), nil
}

// Decrypt opens an armored envelope with the given password.
func Decrypt(armor string, password []byte) (string, error) {
	salt, expectMAC, ciphertext, err := parseArmor(armor)
	if err != nil {
		return "", err
	}

	cipherKey, hmacKey, iv := deriveKeys(password, salt)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)
	if subtle.ConstantTimeCompare(mac.Sum(nil), expectMAC) != 1 {
		return "", &DecryptionError{Msg: "HMAC verification failed"}
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return "", fmt.Errorf("initializing cipher: %s", err)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", &DecryptionError{Msg: err.Error()}
	}
	return string(plaintext), nil
}

// EnvelopeID returns the vault id named in a 1.2 header, or "" for 1.1.
func EnvelopeID(armor string) string {
	header := strings.SplitN(strings.TrimSpace(armor), "\n", 2)[0]
	parts := strings.Split(strings.TrimSpace(header), ";")
	if len(parts) >= 4 && parts[1] == version12 {
		return parts[3]
	}
	return ""
}

func parseArmor(armor string) (salt, mac, ciphertext []byte, err error) {
	lines := strings.Split(strings.TrimSpace(armor), "\n")
	if len(lines) < 2 {
		return nil, nil, nil, fmt.Errorf("vault envelope is missing its body")
	}

	header := strings.Split(strings.TrimSpace(lines[0]), ";")
	if len(header) < 3 || header[0] != formatID {
		return nil, nil, nil, fmt.Errorf("vault envelope has an invalid header")
	}
	if header[1] != version11 && header[1] != version12 {
		return nil, nil, nil, fmt.Errorf("unsupported vault version '%s'", header[1])
	}
	if header[2] != cipherAES256 {
		return nil, nil, nil, fmt.Errorf("unsupported vault cipher '%s'", header[2])
	}

	bodyHex := strings.Join(lines[1:], "")
	body, err := hex.DecodeString(strings.TrimSpace(bodyHex))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decoding vault body: %s", err)
	}

	parts := strings.Split(string(body), "\n")
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("vault body must contain salt, MAC and ciphertext")
	}
	if salt, err = hex.DecodeString(parts[0]); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding vault salt: %s", err)
	}
	if mac, err = hex.DecodeString(parts[1]); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding vault MAC: %s", err)
	}
	if ciphertext, err = hex.DecodeString(parts[2]); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding vault ciphertext: %s", err)
	}
	return salt, mac, ciphertext, nil
}

func foldHex(encoded string) string {
	var lines []string
	for len(encoded) > armorWidth {
		lines = append(lines, encoded[:armorWidth])
		encoded = encoded[armorWidth:]
	}
	lines = append(lines, encoded)
	return strings.Join(lines, "\n")
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}
