package httpapi

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"

	"github.com/rs/zerolog/log"
)

var chars = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
var max = big.NewInt(int64(len(chars)))

//fallbackRand uses less random math/rand in case of failure
func fallbackRand(err error) int {
	log.Warn().Err(err).Msg("Could not use crypto/rand")
	return mrand.Intn(len(chars))
}

//randString returns a random string of given length using crypto/rand
func randString(length int) string {
	str := make([]byte, length)
	for i := range str {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			j := fallbackRand(err)
			str[i] = chars[j]
		} else {
			str[i] = chars[k.Int64()]
		}
	}
	return string(str)
}
