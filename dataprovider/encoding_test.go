// ABOUTME: Tests for the multipart-or-JSON body decision.
// ABOUTME: Verifies that one file field switches the whole payload to form data.

package dataprovider

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"reflect"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNeedsMultipart(t *testing.T) {
	tests := []struct {
		name string
		data Record
		want bool
	}{
		{"plain fields", Record{"title": "x", "count": 3}, false},
		{"nil field", Record{"cover": nil}, false},
		{"map without file", Record{"cover": map[string]any{"src": "a.png"}}, false},
		{"map with non-file rawFile", Record{"cover": map[string]any{"rawFile": "a.png"}}, false},
		{"map with file", Record{"cover": map[string]any{"rawFile": &File{Data: pngHeader}}}, true},
		{"upload value", Record{"cover": Upload{RawFile: &File{Data: pngHeader}}}, true},
		{"upload pointer", Record{"cover": &Upload{RawFile: &File{Data: pngHeader}}}, true},
		{"upload without file", Record{"cover": &Upload{Src: "a.png"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsMultipart(tt.data); got != tt.want {
				t.Errorf("NeedsMultipart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeBody_JSON(t *testing.T) {
	body, err := EncodeBody(Record{"title": "Dune", "pages": 412})
	if err != nil {
		t.Fatalf("EncodeBody() error = %v", err)
	}
	if body.ContentType != "application/json" {
		t.Errorf("ContentType = %q, want application/json", body.ContentType)
	}

	raw, err := io.ReadAll(body.Body)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	want := map[string]any{"title": "Dune", "pages": float64(412)}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("decoded = %v, want %v", decoded, want)
	}
}

func TestEncodeBody_Multipart(t *testing.T) {
	data := Record{
		"title": "Dune",
		"pages": 412,
		"cover": map[string]any{"rawFile": &File{Name: "cover.png", Data: pngHeader}},
	}

	body, err := EncodeBody(data)
	if err != nil {
		t.Fatalf("EncodeBody() error = %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(body.ContentType)
	if err != nil {
		t.Fatalf("ParseMediaType() error = %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Errorf("media type = %q, want multipart/form-data", mediaType)
	}

	form, err := multipart.NewReader(body.Body, params["boundary"]).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm() error = %v", err)
	}
	if got := form.Value["title"]; len(got) != 1 || got[0] != "Dune" {
		t.Errorf("title = %v, want [Dune]", got)
	}
	if got := form.Value["pages"]; len(got) != 1 || got[0] != "412" {
		t.Errorf("pages = %v, want [412]", got)
	}

	if len(form.File["cover"]) != 1 {
		t.Fatalf("cover parts = %d, want 1", len(form.File["cover"]))
	}
	fh := form.File["cover"][0]
	if fh.Filename != "cover.png" {
		t.Errorf("Filename = %q, want cover.png", fh.Filename)
	}
	if ct := fh.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}

	f, err := fh.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(content, pngHeader) {
		t.Errorf("content = %q, want %q", content, pngHeader)
	}
}
