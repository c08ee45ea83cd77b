// Package npy reads and writes the NumPy .npy array format for the element
// types vbranch exchanges with the reference tooling: little-endian float32
// and float64 matrices, and fixed-width unicode or byte string vectors.
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

const magic = "\x93NUMPY"

// Header describes the array stored in a .npy file.
type Header struct {
	Descr        string // NumPy dtype string, e.g. "<f8" or "<U12".
	FortranOrder bool
	Shape        []int
}

// Len returns the number of elements described by the shape.
func (h Header) Len() int {
	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	return n
}

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadHeader consumes the magic string and header dictionary from r, leaving
// r positioned at the first data byte.
func ReadHeader(r io.Reader) (Header, error) {
	pre := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, pre); err != nil {
		return Header{}, fmt.Errorf("%w: npy preamble: %v", types.ErrUnsupportedFormat, err)
	}
	if string(pre[:len(magic)]) != magic {
		return Header{}, fmt.Errorf("%w: not an npy file", types.ErrUnsupportedFormat)
	}

	var hlen int
	switch major := pre[len(magic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Header{}, fmt.Errorf("npy header length: %w", err)
		}
		hlen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Header{}, fmt.Errorf("npy header length: %w", err)
		}
		hlen = int(n)
	default:
		return Header{}, fmt.Errorf("%w: npy version %d", types.ErrUnsupportedFormat, major)
	}

	raw := make([]byte, hlen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Header{}, fmt.Errorf("npy header: %w", err)
	}
	return parseHeader(string(raw))
}

func parseHeader(s string) (Header, error) {
	var h Header
	m := descrRe.FindStringSubmatch(s)
	if m == nil {
		return h, fmt.Errorf("%w: npy header has no descr", types.ErrUnsupportedFormat)
	}
	h.Descr = m[1]

	if m := fortranRe.FindStringSubmatch(s); m != nil {
		h.FortranOrder = m[1] == "True"
	}

	m = shapeRe.FindStringSubmatch(s)
	if m == nil {
		return h, fmt.Errorf("%w: npy header has no shape", types.ErrUnsupportedFormat)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return h, fmt.Errorf("%w: npy shape %q", types.ErrUnsupportedFormat, m[1])
		}
		h.Shape = append(h.Shape, d)
	}
	return h, nil
}

// ReadFloat64 reads a float32 or float64 array and returns its elements in
// C order as float64.
func ReadFloat64(r io.Reader) (Header, []float64, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return h, nil, err
	}

	var size int
	switch h.Descr {
	case "<f8", "=f8":
		size = 8
	case "<f4", "=f4":
		size = 4
	default:
		return h, nil, fmt.Errorf("%w: npy dtype %s, want little-endian float", types.ErrUnsupportedFormat, h.Descr)
	}

	n := h.Len()
	buf := make([]byte, n*size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return h, nil, fmt.Errorf("npy data: %w", err)
	}
	vals := make([]float64, n)
	for i := range vals {
		if size == 8 {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		} else {
			vals[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
	}
	if h.FortranOrder && len(h.Shape) == 2 {
		vals = transpose(vals, h.Shape[0], h.Shape[1])
	}
	return h, vals, nil
}

// transpose reorders a column-major (rows, cols) buffer into row-major order.
func transpose(vals []float64, rows, cols int) []float64 {
	out := make([]float64, len(vals))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[r*cols+c] = vals[c*rows+r]
		}
	}
	return out
}

// ReadStrings reads a one-dimensional fixed-width string array ("<U" unicode
// or "|S" bytes). Trailing NUL padding is removed.
func ReadStrings(r io.Reader) ([]string, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if len(h.Shape) != 1 {
		return nil, fmt.Errorf("%w: npy string array shape %v", types.ErrUnsupportedFormat, h.Shape)
	}

	var wide bool
	var width string
	switch {
	case strings.HasPrefix(h.Descr, "<U"):
		wide, width = true, h.Descr[2:]
	case strings.HasPrefix(h.Descr, "|S"):
		width = h.Descr[2:]
	default:
		return nil, fmt.Errorf("%w: npy dtype %s, want string", types.ErrUnsupportedFormat, h.Descr)
	}
	w, err := strconv.Atoi(width)
	if err != nil || w <= 0 {
		return nil, fmt.Errorf("%w: npy dtype %s", types.ErrUnsupportedFormat, h.Descr)
	}

	item := w
	if wide {
		item = w * 4
	}
	buf := make([]byte, item)
	out := make([]string, 0, h.Shape[0])
	for i := 0; i < h.Shape[0]; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("npy element %d: %w", i, err)
		}
		if wide {
			out = append(out, decodeUTF32(buf))
		} else {
			out = append(out, string(bytes.TrimRight(buf, "\x00")))
		}
	}
	return out, nil
}

func decodeUTF32(b []byte) string {
	var sb strings.Builder
	for i := 0; i+4 <= len(b); i += 4 {
		r := rune(binary.LittleEndian.Uint32(b[i:]))
		if r == 0 {
			break
		}
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// WriteFloat64 writes data as a little-endian float64 array with the given
// shape, using format version 1.0.
func WriteFloat64(w io.Writer, shape []int, data []float64) error {
	h := Header{Descr: "<f8", Shape: shape}
	if h.Len() != len(data) {
		return fmt.Errorf("npy shape %v holds %d values, got %d", shape, h.Len(), len(data))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(encodeHeader(h)); err != nil {
		return err
	}
	var b [8]byte
	for _, v := range data {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// encodeHeader renders the preamble and dictionary padded so the data starts
// on a 64-byte boundary.
func encodeHeader(h Header) []byte {
	dims := make([]string, len(h.Shape))
	for i, d := range h.Shape {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(dims) == 1 {
		shape += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", h.Descr, shape)

	total := len(magic) + 2 + 2 + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}

// LoadFloat64 opens path and reads a float array from it.
func LoadFloat64(path string) (Header, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()
	return ReadFloat64(bufio.NewReader(f))
}

// LoadStrings opens path and reads a string vector from it.
func LoadStrings(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStrings(bufio.NewReader(f))
}
