package queue

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	remoteIDLength = 16
	localIDLength  = 24
	localURLPrefix = "local:"
)

// RemoteVideoID fingerprints a fetched item by its page URL.
func RemoteVideoID(webpageURL string) string {
	return hashPrefix(webpageURL, remoteIDLength)
}

// LocalVideoID fingerprints an imported file by the stem of its original
// name. The longer prefix keeps local IDs disjoint from remote ones.
func LocalVideoID(path string) string {
	base := filepath.Base(path)
	return hashPrefix(strings.TrimSuffix(base, filepath.Ext(base)), localIDLength)
}

// LocalWebpageURL builds the unique URL recorded for an imported file.
func LocalWebpageURL(videoID string) string {
	return localURLPrefix + videoID
}

// IsLocalVideoID reports whether id has the shape of a local fingerprint.
func IsLocalVideoID(id string) bool {
	return len(id) == localIDLength && isHex(id)
}

// IsVideoID reports whether id has the shape of any fingerprint.
func IsVideoID(id string) bool {
	return (len(id) == remoteIDLength || len(id) == localIDLength) && isHex(id)
}

func hashPrefix(value string, length int) string {
	sum := sha1.Sum([]byte(value))
	return hex.EncodeToString(sum[:])[:length]
}

func isHex(value string) bool {
	return strings.IndexFunc(value, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) < 0
}
