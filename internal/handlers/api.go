// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for the ruletracker API.
// Handlers are grouped by resource (categories, rules, view) and receive
// their dependencies through the API struct.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/middleware"
	"ruletracker/internal/models"
	"ruletracker/internal/session"
	"ruletracker/internal/store"
)

const (
	// maxBodyBytes bounds every request body.
	maxBodyBytes = 64 << 10

	defaultLimit = 50
	maxLimit     = 500
)

// CategoryStore is the category persistence the API needs.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	Children(ctx context.Context, parentID uuid.UUID) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, name string, parentID *uuid.UUID) (*models.Category, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, req models.MoveRequest) (*models.Category, error)
	Reorder(ctx context.Context, items []store.ReorderItem) error
}

// RuleStore is the rule persistence the API needs.
type RuleStore interface {
	List(ctx context.Context, f store.RuleFilter) ([]models.Rule, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rule, error)
	Create(ctx context.Context, categoryID uuid.UUID, content string) (*models.Rule, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Rule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Follow(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error)
	Violate(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error)
	Records(ctx context.Context, ruleID uuid.UUID, limit int) ([]models.CountRecord, error)
}

// SnapshotCache caches the flat category list between mutations. Get
// reports the cache generation; Set stores a list only if no Invalidate
// happened since that generation was read.
type SnapshotCache interface {
	Get(ctx context.Context) ([]models.Category, int64, bool)
	Set(ctx context.Context, gen int64, cats []models.Category)
	Invalidate(ctx context.Context)
}

// InvalidationLog records which entity caused a cache invalidation and
// lists the most recent records.
type InvalidationLog interface {
	Log(ctx context.Context, entityType string, entityID uuid.UUID, action string)
	RecentEntries(ctx context.Context, limit int) ([]store.CacheLogEntry, error)
}

// ViewSessions persists per-client view state.
type ViewSessions interface {
	Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *session.Data, error)
	Save(ctx context.Context, id string, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// API groups all JSON API handlers and their dependencies.
type API struct {
	categories CategoryStore
	rules      RuleStore
	snapshot   SnapshotCache
	cacheLog   InvalidationLog
	sessions   ViewSessions
	metrics    *middleware.Metrics
}

// NewAPI creates the API handler group. cacheLog and metrics may be nil.
func NewAPI(categories CategoryStore, rules RuleStore, snapshot SnapshotCache, cacheLog InvalidationLog, sessions ViewSessions, metrics *middleware.Metrics) *API {
	return &API{
		categories: categories,
		rules:      rules,
		snapshot:   snapshot,
		cacheLog:   cacheLog,
		sessions:   sessions,
		metrics:    metrics,
	}
}

// loadCategories returns the full flat category list, from the snapshot
// cache when it is warm and from the store otherwise. The generation is
// read before the store so a write committed during the load keeps its
// invalidation.
func (a *API) loadCategories(ctx context.Context) ([]models.Category, error) {
	cats, gen, ok := a.snapshot.Get(ctx)
	if ok {
		return cats, nil
	}
	cats, err := a.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	a.snapshot.Set(ctx, gen, cats)
	return cats, nil
}

// loadTree builds the current category forest.
func (a *API) loadTree(ctx context.Context) (*categorytree.Tree, error) {
	cats, err := a.loadCategories(ctx)
	if err != nil {
		return nil, err
	}
	return categorytree.Build(cats), nil
}

// invalidate drops the tree snapshot after a write and records why.
func (a *API) invalidate(ctx context.Context, entityType string, id uuid.UUID, action string) {
	a.snapshot.Invalidate(ctx)
	if a.cacheLog != nil {
		a.cacheLog.Log(ctx, entityType, id, action)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		middleware.WriteError(w, http.StatusBadRequest, "Malformed JSON body.")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, answering 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid id.")
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit parses the optional limit query parameter, capped at maxLimit.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		middleware.WriteError(w, http.StatusBadRequest, "limit must be a positive integer.")
		return 0, false
	}
	return min(n, maxLimit), true
}

// fail maps a store or tree error onto an HTTP status. Unexpected errors
// are logged and reported generically.
func (a *API) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, categorytree.ErrUnknownCategory):
		middleware.WriteError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, categorytree.ErrSelfMove):
		a.metrics.RejectMove("self")
		middleware.WriteError(w, http.StatusBadRequest, "A category cannot be moved under itself.")
	case errors.Is(err, categorytree.ErrCyclicMove):
		a.metrics.RejectMove("cycle")
		middleware.WriteError(w, http.StatusBadRequest, "A category cannot be moved under one of its descendants.")
	default:
		slog.Error(op+" failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Request failed.")
	}
}
