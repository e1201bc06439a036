// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory fakes of the stores for unit tests, and connections to
// PostgreSQL and Valkey for integration tests. Integration tests are
// skipped when either is unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/database"
	"ruletracker/internal/middleware"
	"ruletracker/internal/models"
	"ruletracker/internal/session"
	"ruletracker/internal/store"
)

// Fixture ids for the Health > {Diet, Exercise} hierarchy.
var (
	healthID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	dietID     = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	exerciseID = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

var errBoom = errors.New("boom")

// fakeCategories is an in-memory CategoryStore that enforces the same
// hierarchy rules as the SQL store.
type fakeCategories struct {
	cats  []models.Category
	err   error
	lists int
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{cats: []models.Category{
		{ID: healthID, Name: "Health", SortOrder: 0},
		{ID: dietID, Name: "Diet", ParentID: &healthID, SortOrder: 0},
		{ID: exerciseID, Name: "Exercise", ParentID: &healthID, SortOrder: 1},
	}}
}

func (f *fakeCategories) index(id uuid.UUID) int {
	return slices.IndexFunc(f.cats, func(c models.Category) bool { return c.ID == id })
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.cats), nil
}

func (f *fakeCategories) Children(_ context.Context, parentID uuid.UUID) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.cats {
		if c.HasParent(parentID) {
			out = append(out, c)
		}
	}
	return out, f.err
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if i := f.index(id); i >= 0 {
		c := f.cats[i]
		return &c, nil
	}
	return nil, f.err
}

func (f *fakeCategories) Create(_ context.Context, name string, parentID *uuid.UUID) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	if parentID != nil && f.index(*parentID) < 0 {
		return nil, store.ErrNotFound
	}
	order := 0
	for _, c := range f.cats {
		if (parentID == nil && c.ParentID == nil) || (parentID != nil && c.HasParent(*parentID)) {
			order = max(order, c.SortOrder+1)
		}
	}
	c := models.Category{ID: uuid.New(), Name: name, ParentID: parentID, SortOrder: order, CreatedAt: time.Now()}
	f.cats = append(f.cats, c)
	return &c, nil
}

func (f *fakeCategories) Rename(_ context.Context, id uuid.UUID, name string) (*models.Category, error) {
	i := f.index(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	f.cats[i].Name = name
	c := f.cats[i]
	return &c, nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	if f.index(id) < 0 {
		return store.ErrNotFound
	}
	doomed := categorytree.SubtreeIDs(categorytree.Build(f.cats), id)
	f.cats = slices.DeleteFunc(f.cats, func(c models.Category) bool { return slices.Contains(doomed, c.ID) })
	return nil
}

func (f *fakeCategories) Move(_ context.Context, req models.MoveRequest) (*models.Category, error) {
	err := categorytree.ValidateMove(categorytree.Build(f.cats), req.CategoryID, req.NewParentID)
	if errors.Is(err, categorytree.ErrUnknownCategory) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	i := f.index(req.CategoryID)
	f.cats[i].ParentID = req.NewParentID
	f.cats[i].SortOrder = req.SortOrder
	c := f.cats[i]
	return &c, nil
}

func (f *fakeCategories) Reorder(_ context.Context, items []store.ReorderItem) error {
	for _, item := range items {
		i := f.index(item.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		f.cats[i].ParentID = item.ParentID
		f.cats[i].SortOrder = item.Order
	}
	return nil
}

// interleavedList runs during once, right after the wrapped List returns,
// to simulate a write that commits while a read is still in flight.
type interleavedList struct {
	CategoryStore
	during func()
}

func (s *interleavedList) List(ctx context.Context) ([]models.Category, error) {
	cats, err := s.CategoryStore.List(ctx)
	if during := s.during; during != nil {
		s.during = nil
		during()
	}
	return cats, err
}

// fakeRules is an in-memory RuleStore. Listing filters by exact category.
type fakeRules struct {
	rules   []models.Rule
	records []models.CountRecord
	err     error
	cats    *fakeCategories
}

func (f *fakeRules) find(id uuid.UUID) int {
	return slices.IndexFunc(f.rules, func(r models.Rule) bool { return r.ID == id })
}

func (f *fakeRules) List(_ context.Context, filter store.RuleFilter) ([]models.Rule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Rule
	for _, r := range f.rules {
		if filter.CategoryID == nil || r.CategoryID == *filter.CategoryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRules) FindByID(_ context.Context, id uuid.UUID) (*models.Rule, error) {
	if i := f.find(id); i >= 0 {
		r := f.rules[i]
		return &r, nil
	}
	return nil, f.err
}

func (f *fakeRules) Create(_ context.Context, categoryID uuid.UUID, content string) (*models.Rule, error) {
	if f.cats != nil && f.cats.index(categoryID) < 0 {
		return nil, store.ErrNotFound
	}
	r := models.Rule{ID: uuid.New(), CategoryID: categoryID, Content: content, CreatedAt: time.Now()}
	f.rules = append(f.rules, r)
	return &r, nil
}

func (f *fakeRules) UpdateContent(_ context.Context, id uuid.UUID, content string) (*models.Rule, error) {
	i := f.find(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	f.rules[i].Content = content
	r := f.rules[i]
	return &r, nil
}

func (f *fakeRules) Delete(_ context.Context, id uuid.UUID) error {
	i := f.find(id)
	if i < 0 {
		return store.ErrNotFound
	}
	f.rules = slices.Delete(f.rules, i, i+1)
	return nil
}

func (f *fakeRules) Follow(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error) {
	return f.count(id, models.RecordFollow, note)
}

func (f *fakeRules) Violate(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error) {
	return f.count(id, models.RecordViolate, note)
}

func (f *fakeRules) count(id uuid.UUID, kind models.RecordType, note string) (*models.Rule, error) {
	i := f.find(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	if kind == models.RecordFollow {
		f.rules[i].FollowCount++
	} else {
		f.rules[i].ViolateCount++
	}
	f.records = append(f.records, models.CountRecord{
		ID: uuid.New(), RuleID: id, RecordType: kind, Note: note, Timestamp: time.Now(),
	})
	r := f.rules[i]
	return &r, nil
}

func (f *fakeRules) Records(_ context.Context, ruleID uuid.UUID, limit int) ([]models.CountRecord, error) {
	var out []models.CountRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].RuleID == ruleID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

// fakeSnapshot is an in-memory SnapshotCache with the same generation
// rule as the Valkey one: Set is ignored once Invalidate has moved on.
type fakeSnapshot struct {
	cats          []models.Category
	warm          bool
	gen           int64
	invalidations int
	skippedSets   int
}

func (f *fakeSnapshot) Get(context.Context) ([]models.Category, int64, bool) {
	return slices.Clone(f.cats), f.gen, f.warm
}

func (f *fakeSnapshot) Set(_ context.Context, gen int64, cats []models.Category) {
	if gen != f.gen {
		f.skippedSets++
		return
	}
	f.cats, f.warm = slices.Clone(cats), true
}

func (f *fakeSnapshot) Invalidate(context.Context) {
	f.cats, f.warm = nil, false
	f.gen++
	f.invalidations++
}

type logEntry struct {
	entityType string
	id         uuid.UUID
	action     string
}

type fakeLog struct {
	entries []logEntry
	err     error
}

func (f *fakeLog) Log(_ context.Context, entityType string, id uuid.UUID, action string) {
	f.entries = append(f.entries, logEntry{entityType, id, action})
}

func (f *fakeLog) RecentEntries(_ context.Context, limit int) ([]store.CacheLogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.CacheLogEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.entries[i]
		out = append(out, store.CacheLogEntry{ID: int64(i + 1), EntityType: e.entityType, EntityID: e.id, Action: e.action})
	}
	return out, nil
}

// fakeSessions holds a single view session shared by every request.
type fakeSessions struct {
	data     session.Data
	saves    int
	destroys int
	err      error
}

func (f *fakeSessions) Load(context.Context, http.ResponseWriter, *http.Request) (string, *session.Data, error) {
	d := f.data
	d.View.Expanded = f.data.View.Expanded.Clone()
	return "test", &d, nil
}

func (f *fakeSessions) Save(_ context.Context, _ string, data *session.Data) error {
	f.data = *data
	f.saves++
	return nil
}

func (f *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	if f.err != nil {
		return f.err
	}
	f.data = session.Data{}
	f.destroys++
	return nil
}

// fakeEnv bundles an API wired to in-memory fakes.
type fakeEnv struct {
	API        *API
	Categories *fakeCategories
	Rules      *fakeRules
	Snapshot   *fakeSnapshot
	Log        *fakeLog
	Sessions   *fakeSessions
	Metrics    *middleware.Metrics
}

func newFakeEnv() *fakeEnv {
	cats := newFakeCategories()
	env := &fakeEnv{
		Categories: cats,
		Rules:      &fakeRules{cats: cats},
		Snapshot:   &fakeSnapshot{},
		Log:        &fakeLog{},
		Sessions:   &fakeSessions{},
		Metrics:    middleware.NewMetrics(),
	}
	env.API = NewAPI(env.Categories, env.Rules, env.Snapshot, env.Log, env.Sessions, env.Metrics)
	return env
}

// do runs handler against a request with an optional JSON body and {id}
// URL parameter.
func do(t *testing.T, handler http.HandlerFunc, method, target, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if id != "" {
		req = withChiURLParam(req, "id", id)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// decode unmarshals a response body into v.
func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "ruletracker")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "ruletracker")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session and snapshot keys.
		for _, pattern := range []string{"session:*", "categories:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
