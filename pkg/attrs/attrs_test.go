package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	attrList := []any{"ip", "203.0.113.7", "failures", 5, "reason", "scraping"}

	assert.Equal(t, "203.0.113.7", ExtractString(attrList, "ip"))
	assert.Equal(t, "scraping", ExtractString(attrList, "reason"))

	// Non-string values and missing keys yield the empty string.
	assert.Empty(t, ExtractString(attrList, "failures"))
	assert.Empty(t, ExtractString(attrList, "user_id"))
	assert.Empty(t, ExtractString(nil, "ip"))

	// A trailing key with no value is ignored.
	assert.Empty(t, ExtractString([]any{"dangling"}, "dangling"))
}
