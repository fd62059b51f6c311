package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the source encoding a statement file was read as.
type Charset string

const (
	CharsetUTF8        Charset = "utf-8"
	CharsetUTF8BOM     Charset = "utf-8-bom"
	CharsetUTF16LE     Charset = "utf-16le"
	CharsetUTF16BE     Charset = "utf-16be"
	CharsetWindows1252 Charset = "windows-1252"
	CharsetISO88599    Charset = "iso-8859-9"
)

const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Sniff guesses the charset of a leading chunk of a file.
//
// Order: BOM, strict UTF-8 validation, chardet heuristics, Windows-1252.
func Sniff(buf []byte) Charset {
	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		return CharsetUTF8BOM
	case bytes.HasPrefix(buf, bomUTF16LE):
		return CharsetUTF16LE
	case bytes.HasPrefix(buf, bomUTF16BE):
		return CharsetUTF16BE
	case validUTF8Prefix(buf):
		return CharsetUTF8
	}

	result, err := chardet.NewTextDetector().DetectBest(buf)
	if err == nil {
		switch result.Charset {
		case "UTF-8":
			return CharsetUTF8
		case "ISO-8859-9":
			return CharsetISO88599
		}
	}

	return CharsetWindows1252
}

// NewUTF8Reader wraps r so that it yields UTF-8 regardless of the source
// charset. A UTF-8 BOM is dropped.
func NewUTF8Reader(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	cs := Sniff(buf)

	switch cs {
	case CharsetUTF8:
		return br, cs, nil
	case CharsetUTF8BOM:
		_, _ = br.Discard(len(bomUTF8))
		return br, cs, nil
	}

	return transform.NewReader(br, decoderFor(cs).NewDecoder()), cs, nil
}

func decoderFor(cs Charset) xenc.Encoding {
	switch cs {
	case CharsetUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case CharsetUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case CharsetISO88599:
		return charmap.ISO8859_9
	default:
		return charmap.Windows1252
	}
}

// validUTF8Prefix reports whether buf is UTF-8, tolerating a multi-byte
// sequence cut off by a full sniff window.
func validUTF8Prefix(buf []byte) bool {
	if utf8.Valid(buf) {
		return true
	}

	if len(buf) < sniffSize {
		return false
	}

	for i := 1; i < utf8.UTFMax && i < len(buf); i++ {
		if utf8.Valid(buf[:len(buf)-i]) && !utf8.FullRune(buf[len(buf)-i:]) {
			return true
		}
	}

	return false
}
