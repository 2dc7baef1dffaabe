// Package ticketid derives the externally scanned ticket identifier
// from an order's line items.
package ticketid

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const (
	slugMaxLen    = 10
	randomLen     = 4
	base36Charset = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Generate composes
// {orderNumber}_{titleSlug}_{unitIndex}_{timeComponent}_{randomComponent}.
// The time and random suffixes only guard against accidental collision
// on regeneration; uniqueness is enforced by the orchestrator's
// idempotency check and the store's unique index, never by this
// function alone.
func Generate(orderNumber int64, lineItemTitle string, unitIndex int) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(orderNumber, 10))
	b.WriteByte('_')
	b.WriteString(slug(lineItemTitle))
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(unitIndex))
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	b.WriteByte('_')
	b.WriteString(randomComponent(randomLen))
	return b.String()
}

// CleanTitle produces the display form of a purchased line-item name:
// decorative emoji and boilerplate stripped, whitespace collapsed.
func CleanTitle(title string) string {
	cleaned := strings.ReplaceAll(title, "🎫", "")
	cleaned = strings.ReplaceAll(cleaned, "MR NJP Event's", "MR NJP Events")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return cleaned
}

func slug(title string) string {
	cleaned := strings.ToLower(CleanTitle(title))
	var b strings.Builder
	for _, r := range cleaned {
		if b.Len() == slugMaxLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomComponent(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// the clock rather than returning a zero suffix.
		return strconv.FormatInt(time.Now().UnixNano()%1679616, 36)
	}
	for i := range buf {
		buf[i] = base36Charset[int(buf[i])%len(base36Charset)]
	}
	return string(buf)
}
