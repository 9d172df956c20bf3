package phonepe

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// Checksum computes the X-VERIFY value for a request path:
// hex(sha256(path + saltKey)) suffixed with "###" and the salt index so the
// gateway knows which rotated secret signed the request.
func Checksum(path, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(path + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// Hmac256 is a function to generate HMAC256 hash.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifyHMACAndRetrieveTxnID verifies an HMAC over a transaction id and
// returns the id if valid.
func VerifyHMACAndRetrieveTxnID(key, txnID, receivedHMAC string) (string, bool) {
	expectedHMAC := Hmac256([]byte(txnID), []byte(key))
	if hmac.Equal([]byte(receivedHMAC), []byte(expectedHMAC)) {
		return txnID, true
	}

	return "", false
}

func randomNumber() (string, error) {
	min := big.NewInt(100000000000000000)
	max := big.NewInt(999999999999999999)
	n, err := rand.Int(rand.Reader, new(big.Int).Sub(max, min))
	if err != nil {
		return "", err
	}

	n.Add(n, min)
	return n.String(), nil
}
