package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/goliatone/go-book-catalog/catalog"
	"github.com/goliatone/go-book-catalog/model"
)

// DefaultMaxPageSize is the largest pageSize accepted when Config leaves it unset.
const DefaultMaxPageSize = 100

const maxBodyBytes = 1 << 20

// Config holds the collaborators of the HTTP boundary.
type Config struct {
	Logger      *slog.Logger
	MaxPageSize int
	// Ready reports whether dependencies can serve traffic. Nil means always ready.
	Ready func(ctx context.Context) error
}

type identifiable interface {
	EntityID() int64
}

// resource binds the six endpoints of one entity type to its service.
type resource[T identifiable, S, P, F any] struct {
	plural      string
	parseFilter func(url.Values) (F, error)
	list        func(context.Context, F, *int, *int) ([]T, error)
	get         func(context.Context, int64) (T, error)
	create      func(context.Context, S) (T, error)
	replace     func(context.Context, int64, S) (T, error)
	update      func(context.Context, int64, P) (T, error)
	remove      func(context.Context, int64) (int64, error)

	logger      *slog.Logger
	maxPageSize int
}

// New returns the full API handler, middlewares included.
func New(c *catalog.Catalog, cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxPageSize < 1 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}

	mux := http.NewServeMux()
	Register(mux, c, cfg)
	return Chain(mux, RequestID, AccessLog(cfg.Logger), Recovery(cfg.Logger))
}

// Register mounts the catalog routes and the health probes on mux.
func Register(mux *http.ServeMux, c *catalog.Catalog, cfg Config) {
	mount(mux, &resource[*model.Author, model.AuthorSet, model.AuthorPatch, catalog.AuthorFilter]{
		plural:      "authors",
		parseFilter: parseAuthorFilter,
		list:        c.Authors.List,
		get:         c.Authors.Get,
		create:      c.Authors.Create,
		replace:     c.Authors.Replace,
		update:      c.Authors.Update,
		remove:      c.Authors.Delete,
		logger:      cfg.Logger,
		maxPageSize: cfg.MaxPageSize,
	})
	mount(mux, &resource[*model.Category, model.CategorySet, model.CategoryPatch, catalog.CategoryFilter]{
		plural:      "categories",
		parseFilter: parseCategoryFilter,
		list:        c.Categories.List,
		get:         c.Categories.Get,
		create:      c.Categories.Create,
		replace:     c.Categories.Replace,
		update:      c.Categories.Update,
		remove:      c.Categories.Delete,
		logger:      cfg.Logger,
		maxPageSize: cfg.MaxPageSize,
	})
	mount(mux, &resource[*model.Book, model.BookSet, model.BookPatch, catalog.BookFilter]{
		plural:      "books",
		parseFilter: parseBookFilter,
		list:        c.Books.List,
		get:         c.Books.Get,
		create:      c.Books.Create,
		replace:     c.Books.Replace,
		update:      c.Books.Update,
		remove:      c.Books.Delete,
		logger:      cfg.Logger,
		maxPageSize: cfg.MaxPageSize,
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				cfg.Logger.WarnContext(r.Context(), "readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}

func mount[T identifiable, S, P, F any](mux *http.ServeMux, res *resource[T, S, P, F]) {
	base := "/api/" + res.plural
	mux.HandleFunc("GET "+base, res.handleList)
	mux.HandleFunc("POST "+base, res.handleCreate)
	mux.HandleFunc("GET "+base+"/{id}", res.handleGet)
	mux.HandleFunc("PUT "+base+"/{id}", res.handleReplace)
	mux.HandleFunc("PATCH "+base+"/{id}", res.handleUpdate)
	mux.HandleFunc("DELETE "+base+"/{id}", res.handleDelete)
}

func (res *resource[T, S, P, F]) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, err := pageParams(q, res.maxPageSize)
	if err != nil {
		res.writeParamError(w, err)
		return
	}
	filter, err := res.parseFilter(q)
	if err != nil {
		res.writeParamError(w, err)
		return
	}

	records, err := res.list(r.Context(), filter, page, size)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	if len(records) == 0 {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("No %s matching the criteria were found", res.plural))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]T{res.plural: records})
}

func (res *resource[T, S, P, F]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.writeParamError(w, err)
		return
	}
	record, err := res.get(r.Context(), id)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (res *resource[T, S, P, F]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var set S
	if !decodeBody(w, r, &set) {
		return
	}
	record, err := res.create(r.Context(), set)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/%s/%d", res.plural, record.EntityID()))
	writeJSON(w, http.StatusCreated, record)
}

func (res *resource[T, S, P, F]) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.writeParamError(w, err)
		return
	}
	var set S
	if !decodeBody(w, r, &set) {
		return
	}
	record, err := res.replace(r.Context(), id, set)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (res *resource[T, S, P, F]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.writeParamError(w, err)
		return
	}
	var patch P
	if !decodeBody(w, r, &patch) {
		return
	}
	record, err := res.update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (res *resource[T, S, P, F]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.writeParamError(w, err)
		return
	}
	deleted, err := res.remove(r.Context(), id)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (res *resource[T, S, P, F]) writeParamError(w http.ResponseWriter, err error) {
	var pe *paramError
	if errors.As(err, &pe) {
		badRequest(w, pe.Name, pe.Message)
		return
	}
	writeMessage(w, http.StatusBadRequest, err.Error())
}

// decodeBody reads a single JSON object into dst. It writes a 400 and returns false when
// the body is malformed.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "request body is not valid: "+err.Error())
		return false
	}
	if dec.More() {
		writeMessage(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return false
	}
	return true
}

func parseAuthorFilter(q url.Values) (catalog.AuthorFilter, error) {
	id, err := queryInt64(q, "id")
	if err != nil {
		return catalog.AuthorFilter{}, err
	}
	return catalog.AuthorFilter{ID: id, Name: queryString(q, "name")}, nil
}

func parseCategoryFilter(q url.Values) (catalog.CategoryFilter, error) {
	id, err := queryInt64(q, "id")
	if err != nil {
		return catalog.CategoryFilter{}, err
	}
	return catalog.CategoryFilter{ID: id, Name: queryString(q, "name")}, nil
}

func parseBookFilter(q url.Values) (catalog.BookFilter, error) {
	var (
		f   catalog.BookFilter
		err error
	)
	if f.AuthorID, err = queryInt64(q, "authorId"); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryInt64(q, "categoryId"); err != nil {
		return f, err
	}
	if f.IsRead, err = queryBool(q, "isRead"); err != nil {
		return f, err
	}
	if f.PublishedOn, err = queryDate(q, "publishedAt"); err != nil {
		return f, err
	}
	f.Title = queryString(q, "title")
	f.ISBN = queryString(q, "isbn")
	return f, nil
}
