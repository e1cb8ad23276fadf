package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// GenerateID generates a unique ID with the given prefix
func GenerateID(prefix string) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 10

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[num.Int64()]
	}

	return fmt.Sprintf("%s-%s", prefix, string(result))
}

// GenerateClientKey returns a fresh business key for a client.
func GenerateClientKey() string {
	return GenerateID("CLI")
}

// GenerateAccountNumber generates an 8-digit account number starting with 01
func GenerateAccountNumber() string {
	num, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	return fmt.Sprintf("01%06d", num.Int64())
}

// ValidateAccountNumber accepts 6 to 20 digits.
func ValidateAccountNumber(accountNumber string) bool {
	if len(accountNumber) < 6 || len(accountNumber) > 20 {
		return false
	}
	for _, r := range accountNumber {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseDate accepts RFC3339 or YYYY-MM-DD. A date-only value is midnight UTC,
// or the last nanosecond of that day when endOfDay is set.
func ParseDate(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
