package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference("ROI")
	parts := strings.Split(ref, "_")
	assert.Len(t, parts, 3)
	assert.Equal(t, "ROI", parts[0])
	assert.Equal(t, time.Now().UTC().Format("20060102"), parts[1])
	assert.Len(t, parts[2], 8)

	assert.NotEqual(t, ref, GenerateReference("ROI"))
}

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode("Jane Doe")
	assert.True(t, strings.HasPrefix(code, "jane-doe-"))
	assert.Len(t, code, len("jane-doe-")+4)

	// Unsluggable usernames still produce a usable code.
	fallback := GenerateReferralCode("***")
	assert.True(t, strings.HasPrefix(fallback, "member-"))
}
