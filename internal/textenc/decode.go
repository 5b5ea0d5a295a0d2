package textenc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const (
	sniffSampleSize              = 4096
	nonPrintableThresholdPercent = 30
)

type bomKind int

const (
	bomNone bomKind = iota
	bomUTF8
	bomUTF16LE
	bomUTF16BE
)

// binaryExtensions short-circuit sniffing for files that are never pages.
var binaryExtensions = map[string]struct{}{
	".7z":   {},
	".bin":  {},
	".bz2":  {},
	".exe":  {},
	".gif":  {},
	".gz":   {},
	".ico":  {},
	".jpeg": {},
	".jpg":  {},
	".pdf":  {},
	".png":  {},
	".so":   {},
	".tar":  {},
	".wasm": {},
	".webp": {},
	".xz":   {},
	".zip":  {},
}

// EncodingError reports input that cannot be turned into text.
type EncodingError struct {
	// Offset is the byte offset of the first bad byte, or -1 when the
	// problem is not tied to a position.
	Offset int
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Offset < 0 {
		return e.Reason
	}
	return fmt.Sprintf("byte %d: %s", e.Offset, e.Reason)
}

// Decode turns raw page bytes into a string. A UTF-8 or UTF-16 byte order
// mark selects the encoding; otherwise the content must be valid UTF-8.
// NUL bytes are rejected in every case.
func Decode(content []byte) (string, error) {
	var text string
	switch detectBOM(content) {
	case bomUTF8:
		if err := checkUTF8(content[3:], 3); err != nil {
			return "", err
		}
		text = string(content[3:])
	case bomUTF16LE:
		out, err := decodeUTF16(content, unicode.LittleEndian)
		if err != nil {
			return "", err
		}
		text = out
	case bomUTF16BE:
		out, err := decodeUTF16(content, unicode.BigEndian)
		if err != nil {
			return "", err
		}
		text = out
	default:
		if err := checkUTF8(content, 0); err != nil {
			return "", err
		}
		text = string(content)
	}
	if i := strings.IndexByte(text, 0); i >= 0 {
		return "", &EncodingError{Offset: i, Reason: "NUL byte in text"}
	}
	return text, nil
}

// DecodeCharset decodes content using a WHATWG encoding label such as
// "windows-1252" or "shift_jis", the way browsers label form posts. A byte
// order mark overrides the label. An empty label behaves like Decode.
// Bytes the charset cannot map are an error, never a replacement character.
func DecodeCharset(content []byte, label string) (string, error) {
	if label == "" || detectBOM(content) != bomNone {
		return Decode(content)
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", &EncodingError{Offset: -1, Reason: fmt.Sprintf("unknown charset %q", label)}
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return Decode(content)
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", &EncodingError{Offset: -1, Reason: fmt.Sprintf("decode %s: %v", label, err)}
	}
	// The decoders substitute U+FFFD for bytes they cannot map. Only
	// replacement characters the input spells out itself are allowed.
	allowed := 0
	if rep, err := enc.NewEncoder().Bytes([]byte(string(utf8.RuneError))); err == nil && len(rep) > 0 {
		allowed = bytes.Count(content, rep)
	}
	if bytes.Count(out, []byte(string(utf8.RuneError))) > allowed {
		return "", &EncodingError{Offset: -1, Reason: fmt.Sprintf("invalid %s byte sequence", label)}
	}
	if i := bytes.IndexByte(out, 0); i >= 0 {
		return "", &EncodingError{Offset: i, Reason: "NUL byte in text"}
	}
	return string(out), nil
}

// ReadFile reads and decodes path. charset may be empty.
func ReadFile(path, charset string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if LooksBinary(path, content) {
		return "", &EncodingError{Offset: -1, Reason: "binary content"}
	}
	text, err := DecodeCharset(content, charset)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// LooksBinary guesses whether content is something other than text. The
// path, when given, short-circuits obvious binary extensions.
func LooksBinary(path string, content []byte) bool {
	if path != "" {
		if _, ok := binaryExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			return true
		}
	}
	sample := content
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
	}
	if len(sample) == 0 || detectBOM(sample) != bomNone {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	if utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		if !isCommonTextByte(b) {
			nonPrintable++
		}
	}
	return nonPrintable*100/len(sample) >= nonPrintableThresholdPercent
}

func isCommonTextByte(b byte) bool {
	switch {
	case b == '\t' || b == '\n' || b == '\r':
		return true
	case b >= 0x20 && b <= 0x7E:
		return true
	case b >= 0x80:
		return true
	default:
		return false
	}
}

func detectBOM(sample []byte) bomKind {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return bomUTF8
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}):
		return bomUTF16LE
	case bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return bomUTF16BE
	}
	return bomNone
}

func decodeUTF16(content []byte, endian unicode.Endianness) (string, error) {
	if len(content)%2 != 0 {
		return "", &EncodingError{Offset: len(content) - 1, Reason: "truncated UTF-16"}
	}
	if i := unpairedSurrogate(content, endian); i >= 0 {
		return "", &EncodingError{Offset: i, Reason: "unpaired UTF-16 surrogate"}
	}
	out, err := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder().Bytes(content)
	if err != nil {
		return "", &EncodingError{Offset: -1, Reason: fmt.Sprintf("invalid UTF-16: %v", err)}
	}
	return string(out), nil
}

// unpairedSurrogate returns the byte offset of the first surrogate code
// unit without its partner, or -1. content starts with the byte order mark.
func unpairedSurrogate(content []byte, endian unicode.Endianness) int {
	unit := func(i int) uint16 {
		if endian == unicode.BigEndian {
			return uint16(content[i])<<8 | uint16(content[i+1])
		}
		return uint16(content[i+1])<<8 | uint16(content[i])
	}
	for i := 2; i+1 < len(content); i += 2 {
		switch u := unit(i); {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+3 >= len(content) {
				return i
			}
			if next := unit(i + 2); next < 0xDC00 || next > 0xDFFF {
				return i
			}
			i += 2
		case u >= 0xDC00 && u <= 0xDFFF:
			return i
		}
	}
	return -1
}

// checkUTF8 validates content; base is added to the reported offset.
func checkUTF8(content []byte, base int) error {
	if utf8.Valid(content) {
		return nil
	}
	return &EncodingError{Offset: base + firstInvalidUTF8(content), Reason: "invalid UTF-8"}
}

func firstInvalidUTF8(content []byte) int {
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(content)
}
