// Package codec maps fiches to compact transport payloads and back.
//
// A payload is the standard base64 rendering of an envelope:
//
//	'F' | version | raw DEFLATE(body) | CRC-32 of the preceding bytes, big endian
//
// where body is the positional JSON form of the fiche. The base64 alphabet
// keeps the payload dense in a barcode and leaves only '+', '/' and '=' for
// the URL packager to substitute.
package codec

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"
	"unicode"

	"fichecode/internal/fiche"
)

const (
	// Magic is the first envelope byte of every fiche payload.
	Magic byte = 'F'
	// Version is the envelope version written by Encode.
	Version byte = 1

	headerLen   = 2
	checksumLen = 4

	maxBodyBytes = 1 << 20 // 1 MiB
)

var payloadEncoding = base64.RawStdEncoding.Strict()

// Encode serializes the fiche into a transport payload. The same fiche always
// yields the same payload.
func Encode(f fiche.Fiche) (string, error) {
	if err := f.Validate(); err != nil {
		invariant := ""
		if inv := fiche.Invariant(err); inv != nil {
			invariant = inv.Error()
		}
		return "", &EncodingError{Invariant: invariant, Err: err}
	}

	body, err := marshalBody(toWire(f))
	if err != nil {
		return "", &EncodingError{Err: fmt.Errorf("marshal body: %w", err)}
	}

	payload, err := seal(body)
	if err != nil {
		return "", &EncodingError{Err: err}
	}
	return payload, nil
}

// seal wraps a body into a version 1 envelope and renders it as base64.
func seal(body []byte) (string, error) {
	var envelope bytes.Buffer
	envelope.WriteByte(Magic)
	envelope.WriteByte(Version)

	zw, err := flate.NewWriter(&envelope, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("init compressor: %w", err)
	}
	if _, err := zw.Write(body); err != nil {
		return "", fmt.Errorf("compress body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress body: %w", err)
	}

	var sum [checksumLen]byte
	binary.BigEndian.PutUint32(sum[:], crc32.ChecksumIEEE(envelope.Bytes()))
	envelope.Write(sum[:])

	return base64.StdEncoding.EncodeToString(envelope.Bytes()), nil
}

// EncodedLen returns the length of the payload Encode would produce.
func EncodedLen(f fiche.Fiche) (int, error) {
	payload, err := Encode(f)
	if err != nil {
		return 0, err
	}
	return len(payload), nil
}

// Decode rebuilds a fiche from a payload. It either returns a complete, valid
// fiche or a *DecodingError.
func Decode(payload string) (fiche.Fiche, error) {
	text := stripSpace(payload)
	if text == "" {
		return fiche.Fiche{}, decodingError(ErrMissingVersion, errors.New("empty payload"))
	}

	envelope, err := payloadEncoding.DecodeString(strings.TrimRight(text, "="))
	if err != nil {
		return fiche.Fiche{}, decodingError(ErrCorrupted, err)
	}

	if len(envelope) == 0 || envelope[0] != Magic {
		return fiche.Fiche{}, decodingError(ErrMissingVersion, nil)
	}
	if len(envelope) < headerLen {
		return fiche.Fiche{}, decodingError(ErrTruncated, errors.New("envelope ends before version"))
	}
	if envelope[1] != Version {
		return fiche.Fiche{}, decodingError(ErrUnsupportedVersion, fmt.Errorf("version %d", envelope[1]))
	}
	if len(envelope) < headerLen+checksumLen+1 {
		return fiche.Fiche{}, decodingError(ErrTruncated, errors.New("envelope ends before body"))
	}

	signed := envelope[:len(envelope)-checksumLen]
	want := binary.BigEndian.Uint32(envelope[len(envelope)-checksumLen:])
	if got := crc32.ChecksumIEEE(signed); got != want {
		return fiche.Fiche{}, decodingError(ErrCorrupted, fmt.Errorf("checksum %08x, want %08x", got, want))
	}

	body, err := inflate(signed[headerLen:])
	if err != nil {
		return fiche.Fiche{}, err
	}

	wire, err := unmarshalBody(body)
	if err != nil {
		return fiche.Fiche{}, decodingError(ErrCorrupted, err)
	}
	f, err := fromWire(wire)
	if err != nil {
		return fiche.Fiche{}, decodingError(ErrCorrupted, err)
	}
	if err := f.Validate(); err != nil {
		return fiche.Fiche{}, decodingError(ErrInvalidFiche, err)
	}
	return f, nil
}

func inflate(compressed []byte) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()

	body, err := io.ReadAll(io.LimitReader(zr, maxBodyBytes+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, decodingError(ErrTruncated, err)
		}
		return nil, decodingError(ErrCorrupted, err)
	}
	if len(body) > maxBodyBytes {
		return nil, decodingError(ErrCorrupted, fmt.Errorf("body exceeds %d bytes", maxBodyBytes))
	}
	return body, nil
}

// stripSpace drops whitespace that display and transport layers insert, such
// as line wrapping or a trailing newline from a scanner.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
