package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/iso8211/pkg/catalog"
	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Server holds the API server state
type Server struct {
	catalog  ICatalog
	config   ServerConfig
	metrics  *Metrics
	registry *prometheus.Registry
	log      logrus.FieldLogger
}

// NewServer creates a new API server with its own metrics registry
func NewServer(cat ICatalog, config ServerConfig, log logrus.FieldLogger) *Server {
	reg := prometheus.NewRegistry()
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Server{
		catalog:  cat,
		config:   config,
		metrics:  NewMetrics(reg),
		registry: reg,
		log:      log,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleUpload decodes the request body and stores it in the catalog.
// Gzip and zstd bodies are decompressed first.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		sendError(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	src, err := source.Load(r.Body, s.config.MaxFileSize)
	if err != nil {
		if errors.Is(err, source.ErrTooLarge) {
			sendError(w, fmt.Sprintf("File exceeds %d bytes", s.config.MaxFileSize), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(src.Data) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	start := time.Now()
	file, err := iso8211.Read(src.Data, iso8211.WithLogger(s.log))
	duration := time.Since(start)
	s.metrics.RecordDecode(file, err, duration)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"name":     name,
			"duration": duration,
		}).Warn("decode failed")
		sendDecodeError(w, err)
		return
	}

	entry, duplicate, err := s.catalog.Add(name, src, file)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to store file: %v", err), http.StatusInternalServerError)
		return
	}
	s.refreshCatalogGauge()

	s.log.WithFields(logrus.Fields{
		"file_id":   entry.ID.String(),
		"records":   len(file.DataRecords),
		"duplicate": duplicate,
		"duration":  duration,
	}).Info("file decoded")

	sendSuccess(w, UploadResponse{
		ID:        entry.ID.String(),
		Duplicate: duplicate,
		Records:   entry.Records,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list files: %v", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*catalog.Entry{}
	}
	sendSuccess(w, map[string]interface{}{"files": entries})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}

	entry, err := s.catalog.Get(id)
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}
	sendSuccess(w, entry)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	file, ok := s.decodeStored(w, r)
	if !ok {
		return
	}
	sendSuccess(w, file.DataDescriptiveRecord)
}

// handleGetRecords returns a page of data records selected by the offset
// and limit query parameters.
func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		sendError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit <= 0 {
		sendError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	file, ok := s.decodeStored(w, r)
	if !ok {
		return
	}

	page := RecordsPage{
		Offset:  offset,
		Limit:   limit,
		Total:   len(file.DataRecords),
		Records: []*iso8211.DataRecord{},
	}
	if offset < len(file.DataRecords) {
		end := offset + limit
		if end > len(file.DataRecords) {
			end = len(file.DataRecords)
		}
		page.Records = file.DataRecords[offset:end]
	}
	sendSuccess(w, page)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}

	if err := s.catalog.Delete(id); err != nil {
		s.sendCatalogError(w, err)
		return
	}
	s.refreshCatalogGauge()
	sendSuccess(w, map[string]string{"message": "File deleted successfully"})
}

func (s *Server) fileID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := catalog.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func (s *Server) decodeStored(w http.ResponseWriter, r *http.Request) (*iso8211.InterchangeFile, bool) {
	id, ok := s.fileID(w, r)
	if !ok {
		return nil, false
	}

	start := time.Now()
	file, err := s.catalog.Decode(id, iso8211.WithLogger(s.log))
	if err != nil {
		if isDecodeError(err) {
			s.metrics.RecordDecode(nil, err, time.Since(start))
		}
		s.sendCatalogError(w, err)
		return nil, false
	}
	s.metrics.RecordDecode(file, nil, time.Since(start))
	return file, true
}

func (s *Server) sendCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		sendError(w, "File not found", http.StatusNotFound)
	case isDecodeError(err):
		sendDecodeError(w, err)
	default:
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) refreshCatalogGauge() {
	n, err := s.catalog.Count()
	if err != nil {
		s.log.WithError(err).Warn("failed to count catalog entries")
		return
	}
	s.metrics.SetCatalogFiles(n)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
