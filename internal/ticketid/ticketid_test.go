package ticketid

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	id := Generate(1380, "🎫 VIP PASS", 2)

	parts := strings.Split(id, "_")
	require.Len(t, parts, 5)

	assert.Equal(t, "1380", parts[0])
	assert.Equal(t, "vippass", parts[1])
	assert.Equal(t, "2", parts[2])

	_, err := strconv.ParseInt(parts[3], 36, 64)
	assert.NoError(t, err, "time component must be base36")
	assert.Len(t, parts[4], 4)

	// URL-safe: usable as a path segment without escaping.
	for _, r := range id {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_',
			"unexpected character %q in %s", r, id)
	}
}

func TestGenerate_SlugCapped(t *testing.T) {
	id := Generate(7, "An Extremely Long Line Item Title Indeed", 1)
	parts := strings.Split(id, "_")
	require.Len(t, parts, 5)
	assert.Equal(t, "anextremel", parts[1])
}

func TestGenerate_Distinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := Generate(42, "VIP PASS", 1)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
	}{
		{"strips emoji", "🎫 VIP PASS", "VIP PASS"},
		{"collapses whitespace", "  VIP   PASS  ", "VIP PASS"},
		{"normalizes boilerplate", "MR NJP Event's VIP", "MR NJP Events VIP"},
		{"plain title untouched", "General Admission", "General Admission"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.in))
		})
	}
}
