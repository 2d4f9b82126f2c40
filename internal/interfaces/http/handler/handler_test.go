package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	libraryapp "github.com/courselibrary/backend/internal/application/library"
	"github.com/courselibrary/backend/internal/infrastructure/cache"
	"github.com/courselibrary/backend/internal/infrastructure/persistence/memory"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/courselibrary/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// envelope is dto.Response with a typed payload
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

type testLibrary struct {
	engine *gin.Engine
	store  *memory.Store
	replay *cache.InMemoryReplayStore
}

func newTestLibrary(t *testing.T) *testLibrary {
	t.Helper()

	store := memory.NewStore()
	replay := cache.NewInMemoryReplayStore(0)
	t.Cleanup(func() { _ = replay.Close() })

	mapper := libraryapp.NewStructMapper()
	collections := NewAuthorCollectionHandler(libraryapp.NewAuthorCollectionService(
		mapper, store, store.Authors(), libraryapp.WithReplayStore(replay, time.Hour)))
	authors := NewAuthorHandler(libraryapp.NewAuthorService(mapper, store, store.Authors()))
	courses := NewCourseHandler(libraryapp.NewCourseService(mapper, store, store.Authors(), store.Courses()))

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.BodyLimit(1<<20))
	api := engine.Group("/api/v1")
	api.POST("/authorcollections", collections.Create)
	api.GET("/authorcollections/:ids", collections.Get)
	api.GET("/authors", authors.List)
	api.POST("/authors", authors.Create)
	api.GET("/authors/:authorId", authors.Get)
	api.DELETE("/authors/:authorId", authors.Delete)
	api.GET("/authors/:authorId/courses", courses.List)
	api.POST("/authors/:authorId/courses", courses.Create)
	api.GET("/authors/:authorId/courses/:courseId", courses.Get)
	api.PUT("/authors/:authorId/courses/:courseId", courses.Update)
	api.DELETE("/authors/:authorId/courses/:courseId", courses.Delete)

	return &testLibrary{engine: engine, store: store, replay: replay}
}

func (l *testLibrary) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	l.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) *dto.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode[any](t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	require.NotEmpty(t, env.Error.RequestID)
	return env.Error
}
