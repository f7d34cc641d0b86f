package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeAddress(t *testing.T) {
	assert.Equal(t, "a@b.fiBcc: x@y.fi", SanitizeAddress("a@b.fi\r\nBcc: x@y.fi"))
	assert.Len(t, SanitizeAddress(strings.Repeat("x", 150)), 100)
}

func TestMaskRecipients(t *testing.T) {
	assert.Equal(t, "k***@hel.fi, ***@hel.fi, ***", MaskRecipients([]string{"kaisa@hel.fi", "@hel.fi", "nobody"}))
	assert.Empty(t, MaskRecipients(nil))
}
