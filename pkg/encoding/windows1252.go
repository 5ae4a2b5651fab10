// Package encoding provides text encoding utilities for CryEngine file formats.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Pure ASCII is returned without conversion. Returns the original bytes
// as a string if conversion fails.
func Windows1252ToUTF8(data []byte) string {
	ascii := true
	for _, c := range data {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(data)
	}
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToWindows1252 converts a UTF-8 string to Windows-1252 bytes.
// Returns the original bytes if conversion fails.
func UTF8ToWindows1252(s string) []byte {
	result, _, err := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// NormalizePath lowercases a game path and uses forward slashes, the
// form archives and material files index names by. A leading "./" or "/"
// is dropped.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	return strings.ToLower(strings.TrimLeft(path, "/"))
}

// FixedStringToUTF8 converts a fixed-size Windows-1252 field to UTF-8.
// The field ends at the first null byte.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return Windows1252ToUTF8(data)
}

// UTF8ToFixedString converts a UTF-8 string to a fixed-size Windows-1252
// field, padded with null bytes and truncated to size.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToWindows1252(s))
	return result
}
