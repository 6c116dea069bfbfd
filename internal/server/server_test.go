package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/placeshare/placeshare/internal/usecase"
)

const goodToken = "good-token"

type fakeService struct {
	userID uuid.UUID

	place     usecase.Place
	places    []usecase.Place
	err       error
	created   *usecase.CreatePlaceCommand
	image     []byte
	deletedBy uuid.UUID
	scheduled int
}

func (f *fakeService) Health() map[string]string { return map[string]string{"status": "up"} }

func (f *fakeService) GetPlaceByID(context.Context, uuid.UUID) (usecase.Place, error) {
	return f.place, f.err
}

func (f *fakeService) ListPlacesByUser(context.Context, uuid.UUID) ([]usecase.Place, error) {
	return f.places, f.err
}

func (f *fakeService) CreatePlace(_ context.Context, cmd usecase.CreatePlaceCommand) (usecase.Place, error) {
	f.created = &cmd
	f.image, _ = io.ReadAll(cmd.Image.Reader)
	return f.place, f.err
}

func (f *fakeService) UpdatePlace(_ context.Context, cmd usecase.UpdatePlaceCommand) (usecase.Place, error) {
	p := f.place
	p.Title, p.Description = cmd.Title, cmd.Description
	return p, f.err
}

func (f *fakeService) DeletePlace(_ context.Context, _, userID uuid.UUID) (usecase.Place, error) {
	f.deletedBy = userID
	return f.place, f.err
}

func (f *fakeService) ListUsers(context.Context) ([]usecase.User, error) {
	return []usecase.User{{ID: f.userID, Name: "Max", Email: "max@test.com", Places: []uuid.UUID{f.place.ID}}}, f.err
}

func (f *fakeService) Signup(_ context.Context, cmd usecase.SignupCommand) (usecase.AuthResult, error) {
	return usecase.AuthResult{User: usecase.User{ID: f.userID, Email: cmd.Email}, Token: goodToken}, f.err
}

func (f *fakeService) Login(_ context.Context, cmd usecase.LoginCommand) (usecase.AuthResult, error) {
	return usecase.AuthResult{User: usecase.User{ID: f.userID, Email: cmd.Email}, Token: goodToken}, f.err
}

func (f *fakeService) VerifyToken(_ context.Context, token string) (uuid.UUID, error) {
	if token != goodToken {
		return uuid.Nil, usecase.NewError(usecase.KindUnauthorized, "invalid_token", "Authentication failed!", nil)
	}
	return f.userID, nil
}

func (f *fakeService) ListJobs(context.Context, usecase.ListJobsOption) ([]usecase.Job, int, error) {
	now := time.Now()
	return []usecase.Job{{ID: uuid.New(), Type: usecase.JobTypeReconcile, Status: usecase.JobStatusCompleted, Result: []byte(`{"failed":0}`), StartedAt: &now}}, 1, f.err
}

func (f *fakeService) ScheduleReconcile(context.Context) error {
	f.scheduled++
	return f.err
}

func newTestServer() (*fakeService, http.Handler) {
	fs := &fakeService{
		userID: uuid.New(),
		place: usecase.Place{
			ID:          uuid.New(),
			Title:       "Empire State Building",
			Description: "One of the most famous sky scrapers",
			Address:     "20 W 34th St, New York",
			Location:    usecase.Location{Lat: 40.7484405, Lng: -73.9878584},
			Image:       "images/a.png",
		},
	}
	s := &Server{
		server:    fs,
		validator: validator.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return fs, s.RegisterRoutes()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, Res) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res Res
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, res
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func placeForm(t *testing.T, fields map[string]string, contentType string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="pic.png"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(image)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestGetPlaceByID(t *testing.T) {
	fs, h := newTestServer()

	rec, res := do(t, h, httptest.NewRequest(http.MethodGet, "/api/places/"+fs.place.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	data := res.Data.(map[string]any)
	if data["id"] != fs.place.ID.String() || data["title"] != fs.place.Title {
		t.Fatalf("unexpected place: %v", data)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/places/not-a-uuid", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad id, got %d", rec.Code)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		kind usecase.Kind
		want int
	}{
		{usecase.KindNotFound, http.StatusNotFound},
		{usecase.KindUnauthorized, http.StatusUnauthorized},
		{usecase.KindForbidden, http.StatusForbidden},
		{usecase.KindUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{usecase.KindPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{usecase.KindGeocoding, http.StatusUnprocessableEntity},
		{usecase.KindValidation, http.StatusUnprocessableEntity},
		{usecase.KindUnavailable, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		fs, h := newTestServer()
		fs.err = usecase.NewError(tc.kind, "code", "Safe message.", io.ErrUnexpectedEOF)

		rec, res := do(t, h, httptest.NewRequest(http.MethodGet, "/api/places/"+uuid.NewString(), nil))
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.kind, tc.want, rec.Code)
		}
		if res.Message != "Safe message." {
			t.Fatalf("%v: unexpected message %q", tc.kind, res.Message)
		}
		if strings.Contains(rec.Body.String(), io.ErrUnexpectedEOF.Error()) {
			t.Fatalf("%v: internal cause leaked: %s", tc.kind, rec.Body)
		}
	}
}

func TestListPlacesByUser(t *testing.T) {
	fs, h := newTestServer()
	fs.places = []usecase.Place{fs.place, fs.place}

	rec, res := do(t, h, httptest.NewRequest(http.MethodGet, "/api/places/user/"+fs.userID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if list := res.Data.([]any); len(list) != 2 {
		t.Fatalf("expected 2 places, got %d", len(list))
	}
}

func TestCreatePlace(t *testing.T) {
	fs, h := newTestServer()
	image := []byte("\x89PNG\r\n\x1a\n....")
	body, ct := placeForm(t, map[string]string{
		"title":       "Empire State Building",
		"description": "One of the most famous sky scrapers",
		"address":     "20 W 34th St, New York",
	}, "image/png", image)

	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+goodToken)

	rec, _ := do(t, h, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if fs.created == nil {
		t.Fatalf("expected usecase call")
	}
	if fs.created.UserID != fs.userID {
		t.Fatalf("expected creator from token, got %s", fs.created.UserID)
	}
	if fs.created.Image.ContentType != "image/png" || !bytes.Equal(fs.image, image) {
		t.Fatalf("unexpected upload: %q %q", fs.created.Image.ContentType, fs.image)
	}
}

func TestCreatePlaceValidation(t *testing.T) {
	valid := map[string]string{"title": "t", "description": "long enough", "address": "somewhere"}
	cases := []struct {
		name   string
		fields map[string]string
		image  []byte
	}{
		{"missing title", map[string]string{"description": "long enough", "address": "somewhere"}, []byte("x")},
		{"short description", map[string]string{"title": "t", "description": "abc", "address": "somewhere"}, []byte("x")},
		{"missing address", map[string]string{"title": "t", "description": "long enough"}, []byte("x")},
		{"missing image", valid, nil},
	}

	for _, tc := range cases {
		fs, h := newTestServer()
		body, ct := placeForm(t, tc.fields, "image/png", tc.image)
		req := httptest.NewRequest(http.MethodPost, "/api/places", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+goodToken)

		rec, _ := do(t, h, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", tc.name, rec.Code)
		}
		if fs.created != nil {
			t.Fatalf("%s: usecase must not be called", tc.name)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	fs, h := newTestServer()
	target := "/api/places/" + fs.place.ID.String()

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": goodToken,
		"bad token": "Bearer nope",
	} {
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec, _ := do(t, h, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
	if fs.deletedBy != uuid.Nil {
		t.Fatalf("delete must not run without auth")
	}
}

func TestUpdatePlace(t *testing.T) {
	fs, h := newTestServer()

	req := jsonRequest(http.MethodPatch, "/api/places/"+fs.place.ID.String(), `{"title":"New title","description":"New description"}`)
	req.Header.Set("Authorization", "Bearer "+goodToken)
	rec, res := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if data := res.Data.(map[string]any); data["title"] != "New title" {
		t.Fatalf("unexpected place: %v", data)
	}

	req = jsonRequest(http.MethodPatch, "/api/places/"+fs.place.ID.String(), `{"title":"","description":"New description"}`)
	req.Header.Set("Authorization", "Bearer "+goodToken)
	if rec, _ := do(t, h, req); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestDeletePlace(t *testing.T) {
	fs, h := newTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/api/places/"+fs.place.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+goodToken)
	rec, res := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if res.Message != "Deleted place." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if fs.deletedBy != fs.userID {
		t.Fatalf("expected delete by %s, got %s", fs.userID, fs.deletedBy)
	}
}

func TestSignupAndLogin(t *testing.T) {
	_, h := newTestServer()

	rec, res := do(t, h, jsonRequest(http.MethodPost, "/api/users/signup", `{"name":"Max","email":"max@test.com","password":"secret1"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if data := res.Data.(map[string]any); data["token"] != goodToken {
		t.Fatalf("expected token, got %v", data)
	}

	rec, _ = do(t, h, jsonRequest(http.MethodPost, "/api/users/signup", `{"name":"Max","email":"not-an-email","password":"123"}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("signup validation: expected 422, got %d", rec.Code)
	}

	rec, _ = do(t, h, jsonRequest(http.MethodPost, "/api/users/login", `{"email":"max@test.com","password":"secret1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
}

func TestJobs(t *testing.T) {
	fs, h := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?statuses=COMPLETED&sort_in=asc", nil)
	req.Header.Set("Authorization", "Bearer "+goodToken)
	rec, res := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if res.Meta == nil || res.Meta.Total != 1 {
		t.Fatalf("unexpected meta: %+v", res.Meta)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/jobs/reconcile", nil)
	req.Header.Set("Authorization", "Bearer "+goodToken)
	if rec, _ := do(t, h, req); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if fs.scheduled != 1 {
		t.Fatalf("expected one scheduled run, got %d", fs.scheduled)
	}
}

func TestUnknownRoute(t *testing.T) {
	_, h := newTestServer()

	rec, res := do(t, h, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound || res.Message != "Could not find this route." {
		t.Fatalf("unexpected response %d %+v", rec.Code, res)
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
