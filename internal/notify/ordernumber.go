package notify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var orderNumberPattern = regexp.MustCompile(`^[A-Z0-9-]{4,32}$`)

// GenerateOrderNumber returns RS + base36 milliseconds + five random base36 characters
func GenerateOrderNumber(now time.Time) string {
	id := uuid.New()

	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = base36[int(id[i])%len(base36)]
	}

	return "RS" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)) + string(suffix)
}

// NormalizeOrderNumber trims and upper-cases a client supplied order number.
// The bool is false when the result is not a usable order number.
func NormalizeOrderNumber(s string) (string, bool) {
	n := strings.ToUpper(strings.TrimSpace(s))
	return n, orderNumberPattern.MatchString(n)
}
