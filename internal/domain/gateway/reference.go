package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReference builds a fresh gateway reference: prefix, millisecond
// timestamp, random suffix. Collisions are negligible but not impossible,
// so the store still enforces uniqueness at insert time.
func NewReference(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), strings.ToUpper(suffix))
}
