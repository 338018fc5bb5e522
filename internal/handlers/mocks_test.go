package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/bus-tracker/internal/auth"
	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/db"
	"github.com/ukydev/bus-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// MockBusCollection is a mock implementation of db.BusCollection
type MockBusCollection struct {
	mock.Mock
}

func (m *MockBusCollection) InsertBus(ctx context.Context, bus models.Bus) error {
	args := m.Called(ctx, bus)
	return args.Error(0)
}

func (m *MockBusCollection) FindBusesByRoute(ctx context.Context, start, end string) (db.BusCursor, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(db.BusCursor), args.Error(1)
}

func (m *MockBusCollection) UpdateBusStatus(ctx context.Context, busName string, update models.StatusUpdate) (models.UpdateResult, error) {
	args := m.Called(ctx, busName, update)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockBusCollection) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// sliceCursor serves fixed documents through the BSON codec, so mistyped
// fields fail to decode the same way they do against a server.
type sliceCursor struct {
	docs   []interface{}
	pos    int
	err    error
	closed bool
}

func cursorOf(buses ...models.BusSummary) *sliceCursor {
	docs := make([]interface{}, len(buses))
	for i, bus := range buses {
		docs[i] = bus
	}
	return &sliceCursor{docs: docs}
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if c.err != nil || c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Decode(out interface{}) error {
	raw, err := bson.Marshal(c.docs[c.pos-1])
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (c *sliceCursor) Err() error {
	return c.err
}

func (c *sliceCursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []models.StatusEvent
	err    error
}

func (p *fakePublisher) PublishStatus(ctx context.Context, event models.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) Events() []models.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.StatusEvent(nil), p.events...)
}

type testServer struct {
	handler   http.Handler
	buses     *MockBusCollection
	publisher *fakePublisher
	auth      *auth.Service
	sessions  *auth.CookieStore
	hook      *test.Hook
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	views, err := LoadViews()
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	authService := auth.NewService(cfg.Session, cfg.Conductor, cfg.Admin)
	sessions := auth.NewCookieStore(authService, cfg.Session)
	buses := new(MockBusCollection)
	publisher := &fakePublisher{}

	handler := NewRouter(RouterDeps{
		Config:    cfg,
		Buses:     buses,
		Auth:      authService,
		Sessions:  sessions,
		Publisher: publisher,
		Views:     views,
		Logger:    logger,
	})
	return &testServer{
		handler:   handler,
		buses:     buses,
		publisher: publisher,
		auth:      authService,
		sessions:  sessions,
		hook:      hook,
	}
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// sessionCookie returns a valid session cookie for busName.
func (s *testServer) sessionCookie(t *testing.T, busName string) *http.Cookie {
	t.Helper()
	token, err := s.auth.IssueSession(busName)
	require.NoError(t, err)
	return &http.Cookie{Name: s.sessions.Name(), Value: token}
}
