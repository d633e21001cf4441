package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const refCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomToken(n int) string {
	result := make([]byte, n)
	for i := range result {
		result[i] = refCharset[rand.Intn(len(refCharset))]
	}
	return string(result)
}

// GenerateReference generates a unique reference for ledger transactions,
// e.g. "ROI_20260828_K3XB71QD".
func GenerateReference(prefix string) string {
	timestamp := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, randomToken(8))
}

// GenerateReferralCode derives a shareable enrollment code from a username,
// e.g. "jane-doe-4KQ9". Uniqueness is enforced by the accounts table; callers
// retry on collision.
func GenerateReferralCode(username string) string {
	base := slug.Make(username)
	if base == "" {
		base = "member"
	}
	return fmt.Sprintf("%s-%s", base, strings.ToUpper(randomToken(4)))
}
