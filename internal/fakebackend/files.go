package fakebackend

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

// maxUpload bounds a single multipart upload.
const maxUpload = 32 << 20

type upload struct {
	filename    string
	contentType string
	data        []byte
}

// readUpload parses the multipart "file" part of r.
func readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return upload{}, fail(http.StatusBadRequest, "Expected a multipart upload")
	}

	part, header, err := r.FormFile(apiclient.FileField)
	if err != nil {
		return upload{}, fail(http.StatusBadRequest, "Missing file part")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return upload{}, fmt.Errorf("read upload: %w", err)
	}

	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return upload{filename: header.Filename, contentType: ct, data: data}, nil
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	caller := currentUserID(r)
	owner := r.URL.Query().Get("ownerId")
	if owner == "" {
		owner = caller
	}

	up, err := readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if owner != caller && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}
	if _, ok := s.state.users[owner]; !ok {
		writeError(w, r, errUserNotFound)
		return
	}

	now := s.now()
	f := &file{
		id:          newID(),
		ownerID:     owner,
		filename:    up.filename,
		contentType: up.contentType,
		data:        up.data,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}
	s.state.files[f.id] = f
	httpx.WriteJSON(w, http.StatusCreated, s.state.fileDto(f))
}

func (s *Server) handleReplaceFile(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	f, ok := s.state.files[r.PathValue("id")]
	if !ok {
		writeError(w, r, errFileNotFound)
		return
	}
	if !s.state.canWrite(currentUserID(r), f) {
		writeError(w, r, errForbidden)
		return
	}

	f.filename, f.contentType, f.data = up.filename, up.contentType, up.data
	f.version++
	f.updatedAt = s.now()
	httpx.WriteJSON(w, http.StatusOK, s.state.fileDto(f))
}

func (s *Server) handleMyFiles(w http.ResponseWriter, r *http.Request) {
	caller := currentUserID(r)

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	httpx.WriteJSON(w, http.StatusOK, s.filesWhere(func(f *file) bool { return f.ownerID == caller }))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	f, err := s.readableFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.state.fileDto(f))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	caller := currentUserID(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	f, ok := s.state.files[r.PathValue("id")]
	if !ok {
		writeError(w, r, errFileNotFound)
		return
	}
	if f.ownerID != caller && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}

	s.state.deleteFile(f.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	f, err := s.readableFile(r)
	var (
		data     []byte
		ct, name string
	)
	if err == nil {
		data, ct, name = f.data, f.contentType, f.filename
	}
	s.state.mu.RUnlock()

	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleFilesNotShared(w http.ResponseWriter, r *http.Request) {
	caller, target := currentUserID(r), r.PathValue("userId")

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if _, ok := s.state.users[target]; !ok {
		writeError(w, r, errUserNotFound)
		return
	}

	shared := make(map[string]bool)
	for _, sh := range s.state.userShares {
		if sh.userID == target {
			shared[sh.fileID] = true
		}
	}
	httpx.WriteJSON(w, http.StatusOK, s.filesWhere(func(f *file) bool {
		return f.ownerID == caller && !shared[f.id]
	}))
}

func (s *Server) handleAllFiles(w http.ResponseWriter, r *http.Request) {
	caller, target := currentUserID(r), r.PathValue("userId")

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if caller != target && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}
	if _, ok := s.state.users[target]; !ok {
		writeError(w, r, errUserNotFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, s.filesWhere(func(f *file) bool {
		_, ok := s.state.permission(target, f)
		return ok
	}))
}

// readableFile resolves the file in the path for the caller. The caller
// holds at least the read lock.
func (s *Server) readableFile(r *http.Request) (*file, error) {
	f, ok := s.state.files[r.PathValue("id")]
	if !ok {
		return nil, errFileNotFound
	}
	if !s.state.canRead(currentUserID(r), f) {
		return nil, errForbidden
	}
	return f, nil
}

// filesWhere lists matching files ordered by creation time.
func (s *Server) filesWhere(keep func(*file) bool) []apiclient.FileDto {
	var matched []*file
	for _, f := range s.state.files {
		if keep(f) {
			matched = append(matched, f)
		}
	}
	sortBy(matched, func(f *file) string {
		return f.createdAt.Format("20060102150405.000000000") + f.id
	})

	out := make([]apiclient.FileDto, 0, len(matched))
	for _, f := range matched {
		out = append(out, s.state.fileDto(f))
	}
	return out
}
