package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

var (
	passwordWords = []string{"shadow", "mint", "vault", "heist", "ghost", "raven", "cobra", "viper", "storm", "night", "dark", "steel", "iron", "blade", "cipher"}
	codenameAdj   = []string{"shadow", "silent", "phantom", "scarlet", "silver", "iron", "midnight", "crimson", "ghost", "dark"}
	codenameNoun  = []string{"fox", "raven", "viper", "wolf", "panther", "cobra", "hawk", "lynx", "owl", "mamba"}
)

// accessCodeAlphabet matches nanoid's URL-safe alphabet.
const accessCodeAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// InviteCode is the 32-char hex code embedded in invite links.
func InviteCode() (string, error) {
	return RandomHex(16)
}

// AccessCode returns an 8 character code suitable for sending over Telegram.
func AccessCode() (string, error) {
	out := make([]byte, 8)
	for i := range out {
		n, err := randInt(len(accessCodeAlphabet))
		if err != nil {
			return "", err
		}
		out[i] = accessCodeAlphabet[n]
	}
	return string(out), nil
}

// ReadablePassword returns a word-word-NNNN password for buyer invites.
func ReadablePassword() (string, error) {
	return wordPair(passwordWords, passwordWords)
}

// Codename returns an adjective-animal-NNNN alias for buyers.
func Codename() (string, error) {
	return wordPair(codenameAdj, codenameNoun)
}

func wordPair(first, second []string) (string, error) {
	i, err := randInt(len(first))
	if err != nil {
		return "", err
	}
	j, err := randInt(len(second))
	if err != nil {
		return "", err
	}
	n, err := randInt(9000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%d", first[i], second[j], 1000+n), nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
