package storage

import (
	"fmt"
	"strings"
)

// ParseLocator splits an s3://bucket/key storage locator into bucket and key.
func ParseLocator(locator string) (bucket, key string, err error) {
	const scheme = "s3://"

	if !strings.HasPrefix(locator, scheme) {
		return "", "", fmt.Errorf("invalid storage locator %q: expected s3:// scheme", locator)
	}

	rest := strings.TrimPrefix(locator, scheme)
	idx := strings.Index(rest, "/")
	if idx <= 0 {
		return "", "", fmt.Errorf("invalid storage locator %q: missing bucket or key", locator)
	}

	bucket = rest[:idx]
	key = strings.TrimPrefix(rest[idx:], "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid storage locator %q: missing bucket or key", locator)
	}

	return bucket, key, nil
}
