// Package tempurl generates OpenStack Swift temporary URLs for course assets
// kept in object storage. A temporary URL carries temp_url_sig and
// temp_url_expires query parameters; the signature is an HMAC-SHA1 of
// "GET\n<expires>\n<object path>" under the account's TempURL key.
package tempurl

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Iron-Ham/olx/internal/config"
	"github.com/Iron-Ham/olx/internal/errors"
)

// ErrNotConfigured is returned when a URL is requested without the storage
// settings needed to sign it.
var ErrNotConfigured = errors.New("object storage is not configured")

// Signer creates temporary URLs below a fixed endpoint and path prefix.
type Signer struct {
	endpoint string
	path     string
	key      string
	now      func() time.Time
}

// NewSigner creates a Signer from storage settings. Missing settings are not
// an error here; they are reported when a URL is requested, so courses that
// never use temporary URLs need no storage configuration.
func NewSigner(cfg config.StorageConfig) *Signer {
	return &Signer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		path:     cfg.Path,
		key:      cfg.SecretKey,
		now:      time.Now,
	}
}

// Configured reports whether every storage setting is present.
func (s *Signer) Configured() bool {
	return s.missing() == nil
}

func (s *Signer) missing() []string {
	var missing []string
	if s.endpoint == "" {
		missing = append(missing, "storage.endpoint")
	}
	if s.path == "" {
		missing = append(missing, "storage.path")
	}
	if s.key == "" {
		missing = append(missing, "storage.secret_key")
	}
	return missing
}

// URL returns a temporary GET URL for path, relative to the configured
// storage path, that stops working at expires. The joined path must name an
// object: /v1/<account>/<container>/<object>.
func (s *Signer) URL(path string, expires time.Time) (string, error) {
	if missing := s.missing(); len(missing) > 0 {
		return "", errors.Wrapf(ErrNotConfigured, "missing %s", strings.Join(missing, ", "))
	}
	if !expires.After(s.now()) {
		return "", errors.New("temporary URL expiry " + expires.UTC().Format(time.RFC3339) + " is not in the future")
	}

	full := s.path + path
	if !isObjectPath(full) {
		return "", errors.New("temporary URL path " + full + " is not a full object path (/v1/<account>/<container>/<object>)")
	}
	if _, err := url.Parse(s.endpoint + full); err != nil {
		return "", errors.Wrap(err, "invalid object URL")
	}

	sig := Signature(s.key, "GET", expires.Unix(), full)
	return fmt.Sprintf("%s%s?temp_url_sig=%s&temp_url_expires=%d", s.endpoint, full, sig, expires.Unix()), nil
}

// Signature computes the Swift TempURL signature of method on path,
// expiring at the given Unix time.
func Signature(key, method string, expires int64, path string) string {
	mac := hmac.New(sha1.New, []byte(key))
	fmt.Fprintf(mac, "%s\n%d\n%s", method, expires, path)
	return hex.EncodeToString(mac.Sum(nil))
}

func isObjectPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	parts := strings.SplitN(p[1:], "/", 4)
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	return true
}
