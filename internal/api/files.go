package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/storage"
)

const lastModifiedLayout = "2006-01-02 15:04:05"

type uploadResponse struct {
	FileURL string `json:"file_url"`
}

type fileEntry struct {
	Key          string `json:"Key"`
	FileURL      string `json:"FileURL"`
	LastModified string `json:"LastModified"`
	Size         int64  `json:"Size"`
	ETag         string `json:"ETag"`
}

// upload stores the multipart "file" part under its own file name.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	file, header, err := s.formFile(w, r)
	if err != nil {
		writeError(w, log, err)
		return
	}
	defer file.Close()

	loc := storage.Location{Bucket: s.bucket, Key: uploadKey(header.Filename)}
	contentType := header.Header.Get("Content-Type")
	if err := s.objects.Put(r.Context(), loc, file, contentType); err != nil {
		writeError(w, log, apperr.Provider(err))
		return
	}
	log.Info().Str("object", loc.String()).Int64("size", header.Size).Msg("uploaded file")
	writeJSON(w, http.StatusOK, uploadResponse{FileURL: storage.PublicURL(loc)})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	objects, err := s.objects.List(r.Context(), s.bucket)
	if err != nil {
		if errors.Is(err, storage.ErrNoBucket) {
			writeError(w, log, apperr.NotFound("Bucket does not exist").WithCause(err))
			return
		}
		writeError(w, log, apperr.Provider(err))
		return
	}

	entries := make([]fileEntry, 0, len(objects))
	for _, o := range objects {
		entries = append(entries, fileEntry{
			Key:          o.Key,
			FileURL:      storage.PublicURL(storage.Location{Bucket: s.bucket, Key: o.Key}),
			LastModified: o.LastModified.Format(lastModifiedLayout),
			Size:         o.Size,
			ETag:         o.ETag,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// formFile returns the "file" part of a bounded multipart body.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.InvalidInput("File too large").WithCause(err)
		}
		return nil, nil, apperr.InvalidInput("No file provided").WithCause(err)
	}
	return file, header, nil
}

// uploadKey drops any directory part a client put in the file name.
func uploadKey(name string) string {
	base := path.Base(path.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." {
		return "upload"
	}
	return base
}
