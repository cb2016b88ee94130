// ABOUTME: Request body encoding for create and update calls.
// ABOUTME: Chooses multipart form data when any field carries a raw file, JSON otherwise.

package dataprovider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is binary file content attached to a record field.
type File struct {
	Name        string
	ContentType string // detected from Data when empty
	Data        []byte
}

// Upload is the value an upload input produces for a field.
type Upload struct {
	RawFile *File  `json:"rawFile"`
	Src     string `json:"src,omitempty"`
	Title   string `json:"title,omitempty"`
}

// EncodedBody is a request body with the content type it must be sent with.
type EncodedBody struct {
	Body        io.Reader
	ContentType string
}

// rawFile extracts the file from a field value shaped like {rawFile: <file>}.
func rawFile(value any) (*File, bool) {
	switch v := value.(type) {
	case Upload:
		return v.RawFile, v.RawFile != nil
	case *Upload:
		if v == nil || v.RawFile == nil {
			return nil, false
		}
		return v.RawFile, true
	case map[string]any:
		switch f := v["rawFile"].(type) {
		case *File:
			return f, f != nil
		case File:
			return &f, true
		}
	}
	return nil, false
}

// NeedsMultipart reports whether any top-level field holds a raw file.
// One file field is enough to send the whole payload as form data.
func NeedsMultipart(data Record) bool {
	for _, value := range data {
		if _, ok := rawFile(value); ok {
			return true
		}
	}
	return false
}

// EncodeBody encodes data as multipart form data when NeedsMultipart says
// so, and as a JSON document otherwise.
func EncodeBody(data Record) (*EncodedBody, error) {
	if !NeedsMultipart(data) {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		return &EncodedBody{Body: bytes.NewReader(raw), ContentType: "application/json"}, nil
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := data[key]
		if f, ok := rawFile(value); ok {
			if err := writeFilePart(w, key, f); err != nil {
				return nil, err
			}
			continue
		}
		field, err := fieldValue(value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", key, err)
		}
		if err := w.WriteField(key, field); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &EncodedBody{Body: buf, ContentType: w.FormDataContentType()}, nil
}

func writeFilePart(w *multipart.Writer, key string, f *File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(f.Data).String()
	}
	name := f.Name
	if name == "" {
		name = key
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Data)
	return err
}

// fieldValue sends strings as-is and everything else as JSON.
func fieldValue(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
