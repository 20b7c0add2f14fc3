package widetolong

import (
	"fmt"
	"strings"
)

const googleStoragePrefix = "gs://"

// IsGoogleStoragePath reports whether path names a Google Storage object.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, googleStoragePrefix)
}

// SplitGoogleStoragePath detects the bucket and the path to the actual object
// within a gs://bucket/object path.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, googleStoragePrefix), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("expected gs://bucket/object but got %q", path)
	}

	return pathParts[0], pathParts[1], nil
}
