package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/s3fs"
)

// Service is the object store of a single bucket.
type Service interface {
	Bucket() string
	CreateObject(ctx context.Context, key string, body io.Reader, contentType string) (s3fs.PutResult, error)
	PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (s3fs.PutResult, error)
	GetObject(ctx context.Context, key string) (*s3fs.Object, error)
	GetObjectIfMatch(ctx context.Context, key, etag string) (*s3fs.Object, error)
	DeleteObject(ctx context.Context, key string) (s3fs.DeleteResult, error)
	DeleteObjectIfMatch(ctx context.Context, key, etag string) (s3fs.DeleteResult, error)
	ListAll(ctx context.Context, prefix string) ([]s3fs.ListEntry, error)
}

// BucketFunc returns the Service for a bucket name.
type BucketFunc func(bucket string) (Service, error)

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

type HandlerConfig struct {
	// MaxUploadSize caps request bodies in bytes; 0 means no limit.
	MaxUploadSize int64
	CORS          CORSConfig
}

// Handler provides HTTP handlers for object storage operations.
type Handler struct {
	config  HandlerConfig
	buckets BucketFunc
}

// NewHandler creates a new Handler with the given configuration and bucket lookup.
func NewHandler(config *HandlerConfig, buckets BucketFunc) *Handler {
	return &Handler{
		config:  *config,
		buckets: buckets,
	}
}

// ListResponse is the body of a bucket listing.
type ListResponse struct {
	Bucket   string           `json:"bucket"`
	Prefix   string           `json:"prefix"`
	Contents []s3fs.ListEntry `json:"contents"`
}

// Router returns an http.Handler serving every bucket below /{bucket}.
// Bucket-level writes have no local equivalent and answer 501.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Use(MaxBodySize(h.config.MaxUploadSize))

	r.Get("/", h.handleUnsupported)

	r.Route("/{bucket}", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Put("/", h.handleUnsupported)
		r.Delete("/", h.handleUnsupported)

		r.Get("/*", h.handleGet)
		r.Head("/*", h.handleGet)
		r.Put("/*", h.handlePut)
		r.Delete("/*", h.handleDelete)
	})

	return r
}

func (h *Handler) service(w http.ResponseWriter, r *http.Request) (Service, bool) {
	svc, err := h.buckets(chi.URLParam(r, "bucket"))
	if err != nil {
		HandleError(w, err)
		return nil, false
	}
	return svc, true
}

func (h *Handler) handleUnsupported(w http.ResponseWriter, r *http.Request) {
	HandleError(w, s3fs.ErrUnsupported)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	prefix := r.URL.Query().Get("prefix")

	entries, err := svc.ListAll(r.Context(), prefix)
	if err != nil {
		HandleError(w, err)
		return
	}

	if entries == nil {
		entries = []s3fs.ListEntry{}
	}

	_ = WriteJSON(w, http.StatusOK, ListResponse{
		Bucket:   svc.Bucket(),
		Prefix:   prefix,
		Contents: entries,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "*")

	ifMatch, ok := ifMatchEtag(w, r)
	if !ok {
		return
	}

	var (
		obj *s3fs.Object
		err error
	)
	if ifMatch != "" {
		obj, err = svc.GetObjectIfMatch(r.Context(), key, ifMatch)
	} else {
		obj, err = svc.GetObject(r.Context(), key)
	}
	if err != nil {
		HandleError(w, err)
		return
	}

	if obj.Etag != "" {
		w.Header().Set("ETag", obj.Etag)
	}
	w.Header().Set("Content-Type", obj.ContentType)

	http.ServeContent(w, r, key, time.Time{}, obj.Reader())
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "*")
	contentType := r.Header.Get("Content-Type")

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm != "*" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "If-None-Match only supports *")
		return
	}

	ifMatch, ok := ifMatchEtag(w, r)
	if !ok {
		return
	}

	var (
		res s3fs.PutResult
		err error
	)
	if ifMatch != "" {
		res, err = svc.PutObjectIfMatch(r.Context(), key, r.Body, ifMatch, contentType)
	} else {
		res, err = svc.CreateObject(r.Context(), key, r.Body, contentType)
	}
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("ETag", res.Etag)
	_ = WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "*")

	ifMatch, ok := ifMatchEtag(w, r)
	if !ok {
		return
	}

	var err error
	if ifMatch != "" {
		_, err = svc.DeleteObjectIfMatch(r.Context(), key, ifMatch)
	} else {
		_, err = svc.DeleteObject(r.Context(), key)
	}
	if err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ifMatchEtag returns the etag of the If-Match header, or "" when it is
// absent. Only a single etag is supported; "*" and lists answer 400.
func ifMatchEtag(w http.ResponseWriter, r *http.Request) (string, bool) {
	ifMatch := strings.TrimSpace(r.Header.Get("If-Match"))
	if ifMatch == "*" || strings.Contains(ifMatch, ",") {
		WriteError(w, http.StatusBadRequest, "invalid_input", "If-Match only supports a single etag")
		return "", false
	}
	return ifMatch, true
}
