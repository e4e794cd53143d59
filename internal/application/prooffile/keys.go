package prooffile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// BuildKey generates a collision-resistant object key for a proof file:
// claims/{claimID}/{kind}-{timestampMillis}-{randomToken}.{ext}
// The millisecond timestamp plus random suffix keeps concurrent uploads for
// the same claim from ever overwriting each other.
func BuildKey(claimID, kind, filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = defaultExt(kind)
	}
	return fmt.Sprintf("claims/%s/%s-%d-%s.%s", claimID, kind, time.Now().UnixMilli(), randomToken(), ext)
}

func randomToken() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the nanosecond clock rather than aborting an upload.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func defaultExt(kind string) string {
	switch kind {
	case "video":
		return "mp4"
	case "document":
		return "pdf"
	default:
		return "png"
	}
}

func detectContentType(filename string) string {
	if ct := mime.TypeByExtension(path.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
