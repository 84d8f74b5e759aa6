package intercept

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Version selects the chip-to-chip encryption scheme (spec §9): V1 is
// AES-128-CBC with a 16-byte truncated HMAC-SHA256 MAC (the corpus carries
// no dedicated short-MAC primitive, so per the open-question decision this
// truncates the standard HMAC rather than inventing one); V2 is AES-128-CBC
// with the full 32-byte HMAC-SHA256 tag.
type Version int

const (
	V1 Version = iota
	V2
)

const (
	macTagLenV1 = 16
	macTagLenV2 = sha256.Size
)

var (
	errShortFrame  = errors.New("intercept: frame shorter than iv+mac")
	errBadMAC      = errors.New("intercept: mac verification failed")
	errNotBlockLen = errors.New("intercept: ciphertext not a multiple of the block size")
)

// NewC2C derives one AES key and one MAC key (shared by both directions)
// from secret via HKDF-SHA256
// (grounded on the teacher pack's pbkdf2-based key stretching in
// seedhammer-seedhammer/bip39, adapted here to HKDF since the input is
// already a high-entropy shared secret rather than a password) and returns
// the Pipeline that encrypts outgoing AT commands and authenticates +
// decrypts incoming ones.
func NewC2C(v Version, secret []byte) (Pipeline, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte("ubxmodem-c2c-"+versionLabel(v)))
	encKey := make([]byte, 16)
	macKey := make([]byte, 32)
	if _, err := io.ReadFull(h, encKey); err != nil {
		return Pipeline{}, err
	}
	if _, err := io.ReadFull(h, macKey); err != nil {
		return Pipeline{}, err
	}

	tagLen := macTagLenV1
	if v == V2 {
		tagLen = macTagLenV2
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return Pipeline{}, err
	}

	return Pipeline{
		TX: func(src []byte) ([]byte, error) { return c2cEncode(block, macKey, tagLen, src) },
		RX: func(src []byte) ([]byte, error) { return c2cDecode(block, macKey, tagLen, src) },
	}, nil
}

func versionLabel(v Version) string {
	if v == V2 {
		return "v2"
	}
	return "v1"
}

func pkcs7Pad(p []byte, blockSize int) []byte {
	n := blockSize - len(p)%blockSize
	out := make([]byte, len(p)+n)
	copy(out, p)
	for i := len(p); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, errNotBlockLen
	}
	n := int(p[len(p)-1])
	if n == 0 || n > len(p) {
		return nil, errNotBlockLen
	}
	return p[:len(p)-n], nil
}

// c2cEncode produces iv || ciphertext || tag. Idempotent on empty input:
// an empty src is returned unchanged, with no IV, padding or tag.
func c2cEncode(block cipher.Block, macKey []byte, tagLen int, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return src, nil
	}
	padded := pkcs7Pad(src, block.BlockSize())
	iv := make([]byte, block.BlockSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ct)
	tag := mac.Sum(nil)[:tagLen]

	out := make([]byte, 0, len(iv)+len(ct)+len(tag))
	out = append(out, iv...)
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

func c2cDecode(block cipher.Block, macKey []byte, tagLen int, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return src, nil
	}
	ivLen := block.BlockSize()
	if len(src) < ivLen+tagLen {
		return nil, errShortFrame
	}
	iv := src[:ivLen]
	ct := src[ivLen : len(src)-tagLen]
	gotTag := src[len(src)-tagLen:]
	if len(ct)%block.BlockSize() != 0 {
		return nil, errNotBlockLen
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ct)
	wantTag := mac.Sum(nil)[:tagLen]
	if !hmac.Equal(gotTag, wantTag) {
		return nil, errBadMAC
	}

	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)
	return pkcs7Unpad(padded)
}
