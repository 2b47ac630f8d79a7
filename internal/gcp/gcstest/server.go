// Package gcstest serves the subset of the Cloud Storage JSON API the deletion
// functions use: listing by prefix, object deletes and single-request uploads.
package gcstest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	listPrefix   = "/storage/v1/b/"
	uploadPrefix = "/upload/storage/v1/b/"
)

// Server is an in-memory bucket store behind an httptest server.
type Server struct {
	srv *httptest.Server

	mu           sync.Mutex
	objects      map[string]map[string][]byte
	deleteStatus map[string]int
	deletes      map[string]int
	uploads      map[string]int
	listed       []string
}

// NewServer starts a fake and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		objects:      map[string]map[string][]byte{},
		deleteStatus: map[string]int{},
		deletes:      map[string]int{},
		uploads:      map[string]int{},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

// Client returns a storage client pointed at the fake.
func (s *Server) Client(t testing.TB) *storage.Client {
	t.Helper()
	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(s.srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("storage client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func (s *Server) Put(bucket, name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects[bucket] == nil {
		s.objects[bucket] = map[string][]byte{}
	}
	s.objects[bucket][name] = content
}

// FailDelete makes every delete of name answer with code.
func (s *Server) FailDelete(name string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteStatus[name] = code
}

func (s *Server) Object(bucket, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[bucket][name]
	return content, ok
}

// Deletes reports how many delete requests reached name.
func (s *Server) Deletes(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[name]
}

// Uploads reports how many upload requests reached name, accepted or not.
func (s *Server) Uploads(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads[name]
}

// ListedPrefixes returns the prefixes of every list request in arrival order.
func (s *Server) ListedPrefixes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.listed...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, uploadPrefix):
		s.upload(w, r)
	case strings.HasPrefix(r.URL.Path, listPrefix):
		bucket, object, ok := splitObjectPath(strings.TrimPrefix(r.URL.Path, listPrefix))
		switch {
		case !ok:
			writeError(w, http.StatusNotFound, "not found")
		case r.Method == http.MethodGet && object == "":
			s.list(w, bucket, r.URL.Query().Get("prefix"))
		case r.Method == http.MethodDelete && object != "":
			s.delete(w, bucket, object)
		default:
			writeError(w, http.StatusMethodNotAllowed, "unsupported")
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// splitObjectPath parses "{bucket}/o" and "{bucket}/o/{object}"; object names
// arrive unescaped in URL.Path.
func splitObjectPath(rest string) (bucket, object string, ok bool) {
	bucket, tail, found := strings.Cut(rest, "/")
	if !found {
		return "", "", false
	}
	if tail == "o" {
		return bucket, "", true
	}
	object, found = strings.CutPrefix(tail, "o/")
	return bucket, object, found
}

func (s *Server) list(w http.ResponseWriter, bucket, prefix string) {
	s.mu.Lock()
	s.listed = append(s.listed, prefix)
	var names []string
	for name := range s.objects[bucket] {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	s.mu.Unlock()
	sort.Strings(names)

	items := make([]map[string]string, 0, len(names))
	for _, name := range names {
		items = append(items, map[string]string{"kind": "storage#object", "name": name, "bucket": bucket})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"kind": "storage#objects", "items": items})
}

func (s *Server) delete(w http.ResponseWriter, bucket, name string) {
	s.mu.Lock()
	s.deletes[name]++
	code, failing := s.deleteStatus[name]
	_, exists := s.objects[bucket][name]
	if !failing && exists {
		delete(s.objects[bucket], name)
	}
	s.mu.Unlock()

	switch {
	case failing:
		writeError(w, code, "denied")
	case !exists:
		writeError(w, http.StatusNotFound, "no such object")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	bucket, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, uploadPrefix), "/")
	if r.URL.Query().Get("uploadType") != "multipart" {
		writeError(w, http.StatusNotImplemented, "only multipart uploads are served")
		return
	}
	name, content, err := readMultipart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.uploads[name]++
	_, exists := s.objects[bucket][name]
	conflict := exists && r.URL.Query().Get("ifGenerationMatch") == "0"
	if !conflict {
		if s.objects[bucket] == nil {
			s.objects[bucket] = map[string][]byte{}
		}
		s.objects[bucket][name] = content
	}
	s.mu.Unlock()

	if conflict {
		writeError(w, http.StatusPreconditionFailed, "At least one of the pre-conditions you specified did not hold.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"kind":       "storage#object",
		"name":       name,
		"bucket":     bucket,
		"generation": "1",
		"size":       fmt.Sprint(len(content)),
	})
}

// readMultipart returns the object name from the metadata part and the media part.
func readMultipart(r *http.Request) (string, []byte, error) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, err
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	part, err := mr.NextPart()
	if err != nil {
		return "", nil, err
	}
	var meta struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		return "", nil, err
	}
	if meta.Name == "" {
		meta.Name = r.URL.Query().Get("name")
	}

	part, err = mr.NextPart()
	if err != nil {
		return "", nil, err
	}
	content, err := io.ReadAll(part)
	if err != nil {
		return "", nil, err
	}
	return meta.Name, content, nil
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
