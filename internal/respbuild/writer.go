package respbuild

import (
	"bytes"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// PageResponse is everything needed to write one rendered-page HTTP
// response.
type PageResponse struct {
	Status      int
	ContentType string
	Body        string
	TTLSeconds  int
}

// Write negotiates compression against acceptEncoding, sets Cache-Control,
// ETag, and Content-Encoding, and handles the If-None-Match 304
// short-circuit, then writes resp's body to w.
func Write(w http.ResponseWriter, acceptEncoding, ifNoneMatch string, resp PageResponse) error {
	etag := ComputeETag([]byte(resp.Body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", CacheControl(resp.TTLSeconds))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if NotModified(ifNoneMatch, etag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	encoding := NegotiateEncoding(acceptEncoding)
	body, err := encodeBody([]byte(resp.Body), encoding)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", resp.ContentType)
	if encoding != EncodingIdentity {
		w.Header().Set("Content-Encoding", encoding.String())
		w.Header().Set("Vary", "Accept-Encoding")
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

func encodeBody(body []byte, encoding Encoding) ([]byte, error) {
	switch encoding {
	case EncodingBrotli:
		var buf bytes.Buffer
		bw := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := bw.Write(body); err != nil {
			return nil, reedstream.Compression("brotli encode", err.Error())
		}
		if err := bw.Close(); err != nil {
			return nil, reedstream.Compression("brotli encode", err.Error())
		}
		return buf.Bytes(), nil
	case EncodingGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(body); err != nil {
			return nil, reedstream.Compression("gzip encode", err.Error())
		}
		if err := gw.Close(); err != nil {
			return nil, reedstream.Compression("gzip encode", err.Error())
		}
		return buf.Bytes(), nil
	default:
		return body, nil
	}
}

// WriteError writes a minimal error page response for status.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return Write(w, "", "", PageResponse{
		Status:      status,
		ContentType: "text/html; charset=utf-8",
		Body:        ErrorPage(status, message),
		TTLSeconds:  0,
	})
}
