package clicker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRequestID builds a per-attempt click id: millisecond timestamp plus a
// random suffix. The server uses it to drop duplicate submissions.
func NewRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
