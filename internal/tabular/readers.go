package tabular

// readers.go wraps the raw upload before it reaches the CSV tokenizer:
//
//   - bomSkippingReader: drops a UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - limitedReader: counts bytes and fails once a size limit is passed
//
// Use wrapSource to apply both in the correct order.

import (
	"bytes"
	"io"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader skips the UTF-8 BOM if the stream starts with one.
type bomSkippingReader struct {
	reader  io.Reader
	checked bool
	pending []byte // Bytes read during the BOM check that belong to the data
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{reader: r}
}

// Read implements io.Reader. The first call inspects up to three bytes.
func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		var head [3]byte
		n, err := io.ReadFull(r.reader, head[:])
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			// Short stream: whatever was read is data unless it is the BOM
		case err != nil:
			return 0, err
		}
		if n < 3 || !bytes.Equal(head[:], utf8BOM) {
			r.pending = append(r.pending, head[:n]...)
		}
	}

	if len(r.pending) > 0 {
		n := copy(p, r.pending)
		r.pending = r.pending[n:]
		return n, nil
	}
	return r.reader.Read(p)
}

// limitedReader tracks bytes read and returns core.ErrFileTooLarge once more
// than limit bytes have been seen. A limit of zero or less disables the check.
type limitedReader struct {
	reader io.Reader
	limit  int64
	read   int64
}

func newLimitedReader(r io.Reader, limit int64) *limitedReader {
	return &limitedReader{reader: r, limit: limit}
}

// Read implements io.Reader.
func (r *limitedReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.limit > 0 && r.read > r.limit {
		return n, core.ErrFileTooLarge
	}
	return n, err
}

// wrapSource applies the size limit to the raw bytes, then strips the BOM.
func wrapSource(r io.Reader, maxSize int64) io.Reader {
	return newBOMSkippingReader(newLimitedReader(r, maxSize))
}
