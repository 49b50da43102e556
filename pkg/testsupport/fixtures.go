package testsupport

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-book-catalog/store"
)

// ReadFixture returns the contents of the file at path, relative to the calling
// test package.
func ReadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}

// FixtureReader is ReadFixture wrapped in a reader, for code that consumes seed streams.
func FixtureReader(t testing.TB, path string) io.Reader {
	t.Helper()
	return bytes.NewReader(ReadFixture(t, path))
}

// LoadCatalog decodes a seed catalog document. Unknown fields fail the test so
// fixtures stay in step with store.Catalog.
func LoadCatalog(t testing.TB, path string) store.Catalog {
	t.Helper()

	dec := json.NewDecoder(FixtureReader(t, path))
	dec.DisallowUnknownFields()

	var doc store.Catalog
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("decode catalog fixture %s: %v", path, err)
	}
	return doc
}

// WriteTempFile writes content to name inside t.TempDir and returns the full path.
func WriteTempFile(t testing.TB, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file %s: %v", path, err)
	}
	return path
}
