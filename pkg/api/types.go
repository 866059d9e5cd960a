package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/iso8211/pkg/catalog"
	"github.com/ssargent/iso8211/pkg/iso8211"
	"github.com/ssargent/iso8211/pkg/source"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Kind classifies decode failures, e.g. "structural"
	Kind string `json:"kind,omitempty"`
}

// UploadResponse is returned by POST /files
type UploadResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
	Records   int    `json:"records"`
}

// RecordsPage is one page of decoded data records
type RecordsPage struct {
	Offset  int                   `json:"offset"`
	Limit   int                   `json:"limit"`
	Total   int                   `json:"total"`
	Records []*iso8211.DataRecord `json:"records"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind        string
	Port        int
	APIKey      string
	MaxFileSize int64 // bytes after decompression, 0 means unlimited
}

// ICatalog defines the catalog operations the API depends on
type ICatalog interface {
	Add(name string, src *source.Source, file *iso8211.InterchangeFile) (*catalog.Entry, bool, error)
	Get(id ksuid.KSUID) (*catalog.Entry, error)
	Decode(id ksuid.KSUID, opts ...iso8211.Option) (*iso8211.InterchangeFile, error)
	List() ([]*catalog.Entry, error)
	Delete(id ksuid.KSUID) error
	Count() (int, error)
}
