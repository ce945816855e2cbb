package tool

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// BuildHealthURL builds the /health URL. Health lives at the server root, not under /api.
func BuildHealthURL(base string) string {
	return base + "/health"
}

// BuildLoginURL builds the /api/login URL.
func BuildLoginURL(base string) string {
	return base + "/api/login"
}

// BuildListURL builds /api/files/list/{clientId}, adding ?folder= when folder is set.
func BuildListURL(base, clientID, folder string) string {
	u := fmt.Sprintf("%s/api/files/list/%s", base, url.PathEscape(clientID))
	if folder != "" {
		q := url.Values{}
		q.Set("folder", folder)
		u += "?" + q.Encode()
	}
	return u
}

// BuildUploadURL builds the /api/files/upload URL.
func BuildUploadURL(base string) string {
	return base + "/api/files/upload"
}

// BuildDownloadURL builds /api/files/download/{fileId}.
func BuildDownloadURL(base, fileID string) string {
	return fmt.Sprintf("%s/api/files/download/%s", base, url.PathEscape(fileID))
}

// BuildDeleteURL builds /api/files/{fileId}.
func BuildDeleteURL(base, fileID string) string {
	return fmt.Sprintf("%s/api/files/%s", base, url.PathEscape(fileID))
}

// BuildMetadataURL builds /api/files/metadata/{fileId}.
func BuildMetadataURL(base, fileID string) string {
	return fmt.Sprintf("%s/api/files/metadata/%s", base, url.PathEscape(fileID))
}

// BuildSearchURL builds /api/files/search/{clientId}.
func BuildSearchURL(base, clientID string) string {
	return fmt.Sprintf("%s/api/files/search/%s", base, url.PathEscape(clientID))
}

// ErrForeignOrigin is returned for links that point away from the file server.
var ErrForeignOrigin = errors.New("link does not point to the file server")

// ResolveResourceURL turns a record url (usually a server-relative path such as
// /static/shared/x.png) into an absolute URL on the origin of base. Only the path and query
// of resource are kept; an absolute resource must already be on that origin.
func ResolveResourceURL(base, resource string) (string, error) {
	origin, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %v", base, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return "", fmt.Errorf("server url %q has no origin", base)
	}
	ref, err := url.Parse(strings.TrimSpace(resource))
	if err != nil {
		return "", fmt.Errorf("invalid resource url %q: %v", resource, err)
	}
	if ref.Scheme != "" && !strings.EqualFold(ref.Scheme, origin.Scheme) {
		return "", fmt.Errorf("%w: %s", ErrForeignOrigin, resource)
	}
	if ref.Host != "" && !strings.EqualFold(ref.Host, origin.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignOrigin, resource)
	}
	if ref.Opaque != "" {
		return "", fmt.Errorf("invalid resource url %q", resource)
	}

	p := ref.EscapedPath()
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	out := origin.Scheme + "://" + origin.Host + p
	if ref.RawQuery != "" {
		out += "?" + ref.RawQuery
	}
	return out, nil
}
