// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graphtest provides an in-memory Microsoft Graph fake for tests.
// It understands the handful of drive endpoints the graph package calls and
// records every request so tests can assert on call order and headers.
package graphtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
)

// Op identifies a Graph endpoint handled by the fake.
type Op string

const (
	OpResolveSite  Op = "resolveSite"
	OpListDrives   Op = "listDrives"
	OpGetFolder    Op = "getFolder"
	OpCreateFolder Op = "createFolder"
	OpUpload       Op = "upload"
	OpDownloadPDF  Op = "downloadPdf"
	OpDelete       Op = "delete"
	OpUnknown      Op = "unknown"
)

// Token is the bearer token the fake accepts by default.
const Token = "test-token"

// Call is one recorded request.
type Call struct {
	Op              Op
	Method          string
	Path            string
	Query           string
	ClientRequestID string
	ReturnClientID  string
	Authorization   string
}

// Drive is a document library on a fake site.
type Drive struct {
	ID   string
	Name string
}

type fault struct {
	status int
	body   string
}

type item struct {
	id      string
	path    string
	content []byte
}

// Server is a fake Graph endpoint. Configure it before issuing requests.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	sites   map[string]string // "host:/path" -> site id
	drives  map[string][]Drive
	folders map[string]map[string]bool  // drive -> folder path
	items   map[string]map[string]*item // drive -> item id
	faults  map[Op]fault
	calls   []Call
	nextID  int

	// PDF overrides the rendition body returned for every item.
	PDF []byte

	// OmitIDs makes successful upload and site responses leave out "id".
	OmitIDs bool

	// OnRequest, if set, runs before each request is handled.
	OnRequest func(op Op, r *http.Request)
}

// NewServer starts a fake Graph server. BaseURL returns the value to put
// in graph.Client.BaseURL.
func NewServer() *Server {
	s := &Server{
		sites:   map[string]string{},
		drives:  map[string][]Drive{},
		folders: map[string]map[string]bool{},
		items:   map[string]map[string]*item{},
		faults:  map[Op]fault{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL is the Graph v1.0 root on the fake.
func (s *Server) BaseURL() string { return s.URL + "/v1.0/" }

// AddSite registers a site reachable as https://{host}{sitePath}.
func (s *Server) AddSite(host, sitePath, siteID string, drives ...Drive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[host+":"+sitePath] = siteID
	s.drives[siteID] = append(s.drives[siteID], drives...)
}

// AddFolder marks a folder path as existing in a drive.
func (s *Server) AddFolder(driveID, folderPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderSet(driveID)[strings.Trim(folderPath, "/")] = true
}

// Fail makes every subsequent request for op answer status with body.
func (s *Server) Fail(op Op, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = fault{status: status, body: body}
}

// Calls returns a copy of the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many requests hit op.
func (s *Server) CallCount(op Op) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// HasFolder reports whether a folder exists in a drive.
func (s *Server) HasFolder(driveID, folderPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folderSet(driveID)[strings.Trim(folderPath, "/")]
}

// ItemContent returns the content stored at itemPath (e.g. "tmp/a.docx").
func (s *Server) ItemContent(driveID, itemPath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items[driveID] {
		if it.path == itemPath {
			return it.content, true
		}
	}
	return nil, false
}

// ItemExists reports whether an item id is present in a drive.
func (s *Server) ItemExists(driveID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[driveID][itemID]
	return ok
}

func (s *Server) folderSet(driveID string) map[string]bool {
	if s.folders[driveID] == nil {
		s.folders[driveID] = map[string]bool{}
	}
	return s.folders[driveID]
}

func (s *Server) itemSet(driveID string) map[string]*item {
	if s.items[driveID] == nil {
		s.items[driveID] = map[string]*item{}
	}
	return s.items[driveID]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1.0/")
	op := classify(r.Method, rest)

	if s.OnRequest != nil {
		s.OnRequest(op, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{
		Op:              op,
		Method:          r.Method,
		Path:            rest,
		Query:           r.URL.RawQuery,
		ClientRequestID: r.Header.Get("client-request-id"),
		ReturnClientID:  r.Header.Get("return-client-request-id"),
		Authorization:   r.Header.Get("Authorization"),
	})

	w.Header().Set("request-id", fmt.Sprintf("req-%d", len(s.calls)))
	if id := r.Header.Get("client-request-id"); id != "" && r.Header.Get("return-client-request-id") == "true" {
		w.Header().Set("client-request-id", id)
	}

	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeError(w, http.StatusUnauthorized, "InvalidAuthenticationToken")
		return
	}
	if f, ok := s.faults[op]; ok {
		w.WriteHeader(f.status)
		io.WriteString(w, f.body)
		return
	}

	switch op {
	case OpResolveSite:
		s.resolveSite(w, rest)
	case OpListDrives:
		s.listDrives(w, rest)
	case OpGetFolder:
		s.getFolder(w, rest)
	case OpCreateFolder:
		s.createFolder(w, r, rest)
	case OpUpload:
		s.upload(w, r, rest)
	case OpDownloadPDF:
		s.downloadPDF(w, r, rest)
	case OpDelete:
		s.deleteItem(w, rest)
	default:
		writeError(w, http.StatusBadRequest, "unsupported request "+r.Method+" "+rest)
	}
}

func classify(method, rest string) Op {
	switch {
	case method == http.MethodGet && strings.HasPrefix(rest, "sites/") && strings.HasSuffix(rest, "/drives"):
		return OpListDrives
	case method == http.MethodGet && strings.HasPrefix(rest, "sites/"):
		return OpResolveSite
	case !strings.HasPrefix(rest, "drives/"):
		return OpUnknown
	}
	_, tail := splitDrive(rest)
	switch {
	case method == http.MethodPost && strings.HasSuffix(tail, "children"):
		return OpCreateFolder
	case method == http.MethodPut && strings.HasSuffix(tail, ":/content"):
		return OpUpload
	case method == http.MethodGet && strings.HasPrefix(tail, "items/") && strings.HasSuffix(tail, "/content"):
		return OpDownloadPDF
	case method == http.MethodDelete && strings.HasPrefix(tail, "items/"):
		return OpDelete
	case method == http.MethodGet && strings.HasPrefix(tail, "root:/"):
		return OpGetFolder
	}
	return OpUnknown
}

// splitDrive turns "drives/{id}/tail" into (id, tail).
func splitDrive(rest string) (string, string) {
	rest = strings.TrimPrefix(rest, "drives/")
	id, tail, _ := strings.Cut(rest, "/")
	return id, tail
}

func (s *Server) resolveSite(w http.ResponseWriter, rest string) {
	key := strings.TrimPrefix(rest, "sites/")
	id, ok := s.sites[key]
	if !ok {
		writeError(w, http.StatusNotFound, "itemNotFound")
		return
	}
	s.writeID(w, http.StatusOK, id)
}

func (s *Server) listDrives(w http.ResponseWriter, rest string) {
	siteID := strings.TrimSuffix(strings.TrimPrefix(rest, "sites/"), "/drives")
	type drive struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := struct {
		Value []drive `json:"value"`
	}{Value: []drive{}}
	for _, d := range s.drives[siteID] {
		out.Value = append(out.Value, drive{ID: d.ID, Name: d.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getFolder(w http.ResponseWriter, rest string) {
	driveID, tail := splitDrive(rest)
	p := strings.Trim(strings.TrimPrefix(tail, "root:/"), "/")
	if s.folderSet(driveID)[p] {
		s.writeID(w, http.StatusOK, "folder-"+p)
		return
	}
	writeError(w, http.StatusNotFound, "itemNotFound")
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request, rest string) {
	driveID, tail := splitDrive(rest)

	var body struct {
		Name             string          `json:"name"`
		Folder           json.RawMessage `json:"folder"`
		ConflictBehavior string          `json:"@microsoft.graph.conflictBehavior"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" || body.Folder == nil {
		writeError(w, http.StatusBadRequest, "invalidRequest")
		return
	}

	parent := ""
	if strings.HasPrefix(tail, "root:/") {
		parent = strings.Trim(strings.TrimSuffix(strings.TrimPrefix(tail, "root:/"), ":/children"), "/")
		if !s.folderSet(driveID)[parent] {
			writeError(w, http.StatusNotFound, "itemNotFound")
			return
		}
	}
	full := path.Join(parent, body.Name)
	if s.folderSet(driveID)[full] {
		writeError(w, http.StatusConflict, "nameAlreadyExists")
		return
	}
	s.folderSet(driveID)[full] = true
	s.writeID(w, http.StatusCreated, "folder-"+full)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, rest string) {
	driveID, tail := splitDrive(rest)
	target := strings.TrimSuffix(strings.TrimPrefix(tail, "root:/"), ":/content")
	content, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalidRequest")
		return
	}

	dir := path.Dir(target)
	if dir != "." && !s.folderSet(driveID)[dir] {
		writeError(w, http.StatusNotFound, "itemNotFound")
		return
	}

	items := s.itemSet(driveID)
	var existing *item
	for _, it := range items {
		if it.path == target {
			existing = it
		}
	}

	switch conflict := r.URL.Query().Get("@microsoft.graph.conflictBehavior"); {
	case existing == nil:
	case conflict == "fail":
		writeError(w, http.StatusConflict, "nameAlreadyExists")
		return
	case conflict == "rename":
		ext := path.Ext(target)
		target = strings.TrimSuffix(target, ext) + " 1" + ext
		existing = nil
	default:
		existing.content = content
		s.writeID(w, http.StatusOK, existing.id)
		return
	}

	s.nextID++
	it := &item{id: fmt.Sprintf("item-%d", s.nextID), path: target, content: content}
	items[it.id] = it
	s.writeID(w, http.StatusCreated, it.id)
}

func (s *Server) downloadPDF(w http.ResponseWriter, r *http.Request, rest string) {
	driveID, tail := splitDrive(rest)
	id := strings.TrimSuffix(strings.TrimPrefix(tail, "items/"), "/content")
	if r.URL.Query().Get("format") != "pdf" {
		writeError(w, http.StatusBadRequest, "format must be pdf")
		return
	}
	it, ok := s.items[driveID][id]
	if !ok {
		writeError(w, http.StatusNotFound, "itemNotFound")
		return
	}
	pdf := s.PDF
	if pdf == nil {
		pdf = []byte("%PDF-1.7\n% rendition of " + it.path + "\n%%EOF\n")
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (s *Server) deleteItem(w http.ResponseWriter, rest string) {
	driveID, tail := splitDrive(rest)
	id := strings.TrimPrefix(tail, "items/")
	if _, ok := s.items[driveID][id]; !ok {
		writeError(w, http.StatusNotFound, "itemNotFound")
		return
	}
	delete(s.items[driveID], id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeID(w http.ResponseWriter, status int, id string) {
	if s.OmitIDs {
		writeJSON(w, status, map[string]string{})
		return
	}
	writeJSON(w, status, map[string]string{"id": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"code": code, "message": code}})
}
