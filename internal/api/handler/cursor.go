package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/voltmatch/voltmatch-be/internal/api/storage"
)

// EncodeJobCursor packs a keyset position into an opaque page token.
// The wire form is base64("<unixnano>|<job_id>").
func EncodeJobCursor(cursor *storage.JobCursor) (string, error) {
	if cursor == nil {
		return "", nil
	}
	raw := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.JobID)
	return base64.URLEncoding.EncodeToString([]byte(raw)), nil
}

// DecodeJobCursor reverses EncodeJobCursor. An empty token means the
// first page.
func DecodeJobCursor(token string) (*storage.JobCursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decoding cursor: %w", err)
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("malformed cursor %q", string(raw))
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing cursor timestamp: %w", err)
	}

	return &storage.JobCursor{
		CreatedAt: time.Unix(0, nanos),
		JobID:     parts[1],
	}, nil
}
