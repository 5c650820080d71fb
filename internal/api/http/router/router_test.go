package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/textsnap/textsnap-server/internal/api/http/context"
	"github.com/textsnap/textsnap-server/internal/model"
	"github.com/textsnap/textsnap-server/internal/ratelimit"
	"github.com/textsnap/textsnap-server/internal/service"
	"github.com/textsnap/textsnap-server/internal/testutil"
	"github.com/textsnap/textsnap-server/internal/token"
)

type memoryStore struct {
	records []model.ImageRequest
}

func (s *memoryStore) Create(_ context.Context, ownerID string, extractedText string) (model.ImageRequest, error) {
	record := model.ImageRequest{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		ExtractedText: extractedText,
		CreatedAt:     time.Now().UTC(),
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID, ownerID string) (model.ImageRequest, error) {
	for _, record := range s.records {
		if record.ID == id && record.OwnerID == ownerID {
			return record, nil
		}
	}
	return model.ImageRequest{}, model.ErrNotFound
}

func (s *memoryStore) ListByOwner(_ context.Context, ownerID string) ([]model.ImageRequest, error) {
	var out []model.ImageRequest
	for _, record := range s.records {
		if record.OwnerID == ownerID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *memoryStore) Search(_ context.Context, ownerID string, _ string) ([]model.ImageRequest, error) {
	return s.ListByOwner(context.Background(), ownerID)
}

type fixedExtractor struct {
	text string
}

func (e *fixedExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return e.text, nil
}

type testServer struct {
	handler http.Handler
	store   *memoryStore
	limiter *ratelimit.FixedWindow
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()

	store := &memoryStore{}
	log := testutil.MakeNoopLogger()

	tokenManager := token.NewJWT("test-secret")
	authService := service.NewAuth(tokenManager, log)
	imageService := service.NewImage(store, &fixedExtractor{text: "receipt total 42.00"}, nil, log)

	limiter := ratelimit.NewFixedWindow(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	r := New(imageService, authService, limiter, httpcontext.NewManager(), 1<<20, log)

	return &testServer{handler: r.Register(), store: store, limiter: limiter}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func mintToken(t *testing.T, s *testServer, userID string) string {
	t.Helper()

	body, err := json.Marshal(map[string]string{"user_id": userID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:1000"
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)

	return resp.AccessToken
}

func imageUpload(t *testing.T, accessToken string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="scan.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader([]byte("not inspected by the fixed extractor")))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.RemoteAddr = "10.0.0.2:2000"
	return req
}

func TestRouter_UploadThenRetrieve(t *testing.T) {
	s := newTestServer(t, 100)
	accessToken := mintToken(t, s, "user-1")

	rec := s.do(imageUpload(t, accessToken))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID            string `json:"id"`
		ExtractedText string `json:"extracted_text"`
		UserID        string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "receipt total 42.00", created.ExtractedText)
	assert.Equal(t, "user-1", created.UserID)

	get := httptest.NewRequest(http.MethodGet, "/images/"+created.ID, nil)
	get.Header.Set("Authorization", "Bearer "+accessToken)
	get.RemoteAddr = "10.0.0.2:2000"
	rec = s.do(get)
	assert.Equal(t, http.StatusOK, rec.Code)

	list := httptest.NewRequest(http.MethodGet, "/images", nil)
	list.Header.Set("Authorization", "Bearer "+accessToken)
	list.RemoteAddr = "10.0.0.2:2000"
	rec = s.do(list)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestRouter_OwnerScoping(t *testing.T) {
	s := newTestServer(t, 100)
	ownerToken := mintToken(t, s, "owner")
	otherToken := mintToken(t, s, "other")

	rec := s.do(imageUpload(t, ownerToken))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	get := httptest.NewRequest(http.MethodGet, "/images/"+created.ID, nil)
	get.Header.Set("Authorization", "Bearer "+otherToken)
	get.RemoteAddr = "10.0.0.3:3000"
	rec = s.do(get)
	assert.Equal(t, http.StatusNotFound, rec.Code, "another owner's record must look absent")
}

func TestRouter_RawImageWithoutRetention(t *testing.T) {
	s := newTestServer(t, 100)
	accessToken := mintToken(t, s, "user-1")

	rec := s.do(imageUpload(t, accessToken))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/images/"+created.ID+"/raw", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.RemoteAddr = "10.0.0.8:8000"
	rec = s.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code, "raw bytes are not kept when retention is off")
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t, 100)

	for _, target := range []string{"/images", "/images/search?query=receipt", "/images/" + uuid.NewString()} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.RemoteAddr = "10.0.0.4:4000"
		rec := s.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"), target)
	}
}

func TestRouter_RateLimitWindow(t *testing.T) {
	s := newTestServer(t, 3)
	accessToken := mintToken(t, s, "user-1")

	// the tokens endpoint consumed one admission for 10.0.0.1, so the
	// listing client uses a distinct address with the full budget
	var codes []int
	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/images", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.RemoteAddr = "10.0.0.5:5000"
		last = s.do(req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 429}, codes)

	retryAfter := last.Header().Get("Retry-After")
	require.NotEmpty(t, retryAfter)
	var seconds int
	_, err := fmt.Sscanf(retryAfter, "%d", &seconds)
	require.NoError(t, err)
	assert.Greater(t, seconds, 0)
	assert.LessOrEqual(t, seconds, 60)
}

func TestRouter_HealthBypassesAuthAndLimit(t *testing.T) {
	s := newTestServer(t, 1)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.6:6000"
		rec := s.do(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	}
}

func TestRouter_SearchValidation(t *testing.T) {
	s := newTestServer(t, 100)
	accessToken := mintToken(t, s, "user-1")

	req := httptest.NewRequest(http.MethodGet, "/images/search?query=+", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.RemoteAddr = "10.0.0.7:7000"
	rec := s.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}
