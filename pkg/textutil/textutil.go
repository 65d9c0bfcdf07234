// Package textutil turns uploaded bytes into contract text: format and
// binary checks, UTF-8 validation, and whitespace normalization.
package textutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/clausefang/pkg/safeconv"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// Sentinel errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrBinary            = errors.New("document is binary")
	ErrInvalidUTF8       = errors.New("document is not valid UTF-8")
	ErrTooLarge          = errors.New("document too large")
)

// SupportedExtensions lists the accepted file extensions. Names without an
// extension are accepted as plain text.
var SupportedExtensions = []string{".txt", ".text"}

var (
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern = regexp.MustCompile(`[ \t]+`)
)

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in s.
// A non-empty string without a trailing newline counts the last partial line.
func CountLines(s string) int {
	if s == "" {
		return 0
	}

	lines := strings.Count(s, "\n")

	if s[len(s)-1] != '\n' {
		lines++
	}

	return lines
}

// Normalize converts CRLF to LF, collapses three or more newlines to a blank
// line, collapses runs of spaces and tabs, and trims the result. Form feeds
// are kept.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	s = spaceRunPattern.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// CheckFormat rejects names whose extension is not a plain-text one.
func CheckFormat(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return nil
	}

	for _, supported := range SupportedExtensions {
		if ext == supported {
			return nil
		}
	}

	return fmt.Errorf("%w: %s (only plain text is accepted)", ErrUnsupportedFormat, ext)
}

// Decode validates data uploaded under name and returns normalized text.
func Decode(name string, data []byte) (string, error) {
	err := CheckFormat(name)
	if err != nil {
		return "", err
	}

	if IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinary, name)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrInvalidUTF8, name)
	}

	return Normalize(string(data)), nil
}

// ReadDocument reads at most maxBytes from r and decodes it. A maxBytes of
// zero means no limit.
func ReadDocument(name string, r io.Reader, maxBytes int64) (string, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, name, humanize.IBytes(safeconv.MustInt64ToUint64(maxBytes)))
	}

	return Decode(name, data)
}

// ReadFile opens path and decodes it with ReadDocument.
func ReadFile(path string, maxBytes int64) (string, error) {
	err := CheckFormat(path)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	return ReadDocument(filepath.Base(path), file, maxBytes)
}
