package upload

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the namespace product images are stored under.
const DefaultPrefix = "product-images"

// StorageKey derives an object key for an uploaded file:
//
//	<prefix>/<base>-<unix millis>-<token><ext>
//
// The extension is kept as is (lowercased); the base name is reduced to a
// URL-safe form. Two uploads of the same filename never share a key as long
// as their tokens differ.
func StorageKey(prefix, filename string, now time.Time, token string) string {
	// Browsers may send a full client path.
	filename = filename[strings.LastIndexAny(filename, `/\`)+1:]

	ext := strings.ToLower(path.Ext(filename))
	if !isCleanExt(ext) {
		ext = ""
	}
	base := sanitize(strings.TrimSuffix(filename, path.Ext(filename)))
	if base == "" {
		base = "file"
	}

	name := base + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + token + ext
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// NewToken returns a short random token for StorageKey.
func NewToken() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-.")
}

func isCleanExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
