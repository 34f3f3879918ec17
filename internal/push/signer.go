package push

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// nonceLength is the downstream consumers' required nonce size.
const nonceLength = 6

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SignParam is the signed envelope header the downstream consumer
// verifies before accepting a pushed result. Field names are a wire
// contract.
type SignParam struct {
	AppID     string `json:"appId"`
	Timestamp int64  `json:"ts"`
	Nonce     string `json:"nonce"`
	Sign      string `json:"sign"`
}

// NewSignParam builds a fresh envelope header for the given case: a
// millisecond timestamp, a random nonce, and the keyed hash over both.
func NewSignParam(appID, secret, caseNumber string) (SignParam, error) {
	nonce, err := newNonce(nonceLength)
	if err != nil {
		return SignParam{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ts := time.Now().UnixMilli()
	return SignParam{
		AppID:     appID,
		Timestamp: ts,
		Nonce:     nonce,
		Sign:      Sign(appID, secret, caseNumber, ts, nonce),
	}, nil
}

// Sign computes the lowercase hex MD5 digest over
// timestamp + appId + caseNumber + nonce + secret, the scheme the
// downstream consumer validates against.
func Sign(appID, secret, caseNumber string, timestamp int64, nonce string) string {
	payload := fmt.Sprintf("%d%s%s%s%s", timestamp, appID, caseNumber, nonce, secret)
	digest := md5.Sum([]byte(payload))
	return hex.EncodeToString(digest[:])
}

// newNonce draws n characters uniformly from the nonce alphabet using
// crypto-grade randomness.
func newNonce(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(nonceAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = nonceAlphabet[idx.Int64()]
	}
	return string(out), nil
}
