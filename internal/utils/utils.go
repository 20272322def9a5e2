package utils

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// UriToPath decodes a file URI into a filesystem path. Percent escapes are
// decoded, and drive-letter paths ("/c:/...", possibly written with
// backslashes) are normalized to forward slashes before conversion to the
// native separator.
func UriToPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", fmt.Errorf("unsupported URI scheme: %s", uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}

	path := u.Path
	if isDrivePath(path) {
		path = strings.ReplaceAll(path, `\`, "/")
		if runtime.GOOS == "windows" {
			path = path[1:]
		}
	}
	return filepath.FromSlash(path), nil
}

func PathToURI(path string) string {
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	uri := url.URL{Scheme: "file", Path: path}
	return uri.String()
}

func isDrivePath(path string) bool {
	if len(path) < 3 || path[0] != '/' || path[2] != ':' {
		return false
	}
	c := path[1]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
