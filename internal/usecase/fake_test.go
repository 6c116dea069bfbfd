package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/placeshare/placeshare/internal/filestorage"
	"github.com/placeshare/placeshare/internal/usecase"
)

var errStoreDown = errors.New("store down")

func notFoundErr(what string) error {
	return usecase.NewError(usecase.KindNotFound, what+"_not_found", what+" not found", nil)
}

func commitUnknownErr() error {
	return usecase.NewError(usecase.KindUnavailable, usecase.CodeCommitUnknown, "transaction commit failed", errStoreDown)
}

func unavailableErr() error {
	return usecase.NewError(usecase.KindUnavailable, "store_unavailable", "store failed", errStoreDown)
}

// memRepo is an in-memory usecase.Repository. Transactions are serialised
// and roll back by restoring a snapshot.
type memRepo struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	places map[uuid.UUID]usecase.Place
	users  map[uuid.UUID]usecase.User
	jobs   map[uuid.UUID]usecase.Job

	// fail returns an error to inject for the named operation.
	fail func(op string) error
	// commitErr is returned by RunInTx after a successful commit.
	commitErr error
	// afterUnlinkedScan runs once ListUnlinkedPlaces has its result.
	afterUnlinkedScan func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		places: map[uuid.UUID]usecase.Place{},
		users:  map[uuid.UUID]usecase.User{},
		jobs:   map[uuid.UUID]usecase.Job{},
	}
}

func (r *memRepo) failing(op string) error {
	if r.fail == nil {
		return nil
	}
	return r.fail(op)
}

func failOn(target string, err error) func(string) error {
	return func(op string) error {
		if op == target {
			return err
		}
		return nil
	}
}

func (r *memRepo) addUser(name string) usecase.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := usecase.User{ID: uuid.New(), Name: name, Email: name + "@test.com", Places: []uuid.UUID{}, CreatedAt: time.Now()}
	r.users[u.ID] = u
	return u
}

func (r *memRepo) user(id uuid.UUID) (usecase.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

func (r *memRepo) place(id uuid.UUID) (usecase.Place, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.places[id]
	return p, ok
}

func (r *memRepo) snapshot() (map[uuid.UUID]usecase.Place, map[uuid.UUID]usecase.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	places := make(map[uuid.UUID]usecase.Place, len(r.places))
	for k, v := range r.places {
		places[k] = v
	}
	users := make(map[uuid.UUID]usecase.User, len(r.users))
	for k, v := range r.users {
		v.Places = slices.Clone(v.Places)
		users[k] = v
	}
	return places, users
}

func (r *memRepo) Health() map[string]string { return map[string]string{"status": "up"} }
func (r *memRepo) Close() error              { return nil }

func (r *memRepo) RunInTx(ctx context.Context, fn func(tx usecase.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	places, users := r.snapshot()
	if err := fn(r); err != nil {
		r.mu.Lock()
		r.places, r.users = places, users
		r.mu.Unlock()
		return err
	}
	return r.commitErr
}

func (r *memRepo) GetPlaceByID(_ context.Context, id uuid.UUID, opt usecase.GetPlaceOption) (usecase.Place, error) {
	if err := r.failing("GetPlaceByID"); err != nil {
		return usecase.Place{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.places[id]
	if !ok {
		return usecase.Place{}, notFoundErr("place")
	}
	if opt.IncludeCreator {
		if u, ok := r.users[p.CreatorID]; ok {
			p.Creator = &u
		}
	}
	return p, nil
}

func (r *memRepo) CreatePlace(_ context.Context, p usecase.Place) (usecase.Place, error) {
	if err := r.failing("CreatePlace"); err != nil {
		return usecase.Place{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.places[p.ID] = p
	return p, nil
}

func (r *memRepo) UpdatePlace(_ context.Context, p usecase.Place) (usecase.Place, error) {
	if err := r.failing("UpdatePlace"); err != nil {
		return usecase.Place{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.places[p.ID]
	if !ok {
		return usecase.Place{}, notFoundErr("place")
	}
	cur.Title, cur.Description, cur.UpdatedAt = p.Title, p.Description, time.Now()
	r.places[p.ID] = cur
	return cur, nil
}

func (r *memRepo) DeletePlace(_ context.Context, id uuid.UUID) error {
	if err := r.failing("DeletePlace"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.places[id]; !ok {
		return notFoundErr("place")
	}
	delete(r.places, id)
	return nil
}

func (r *memRepo) CountPlacesByImage(_ context.Context, path string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.places {
		if p.Image == path {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) ListUsers(context.Context) ([]usecase.User, error) {
	if err := r.failing("ListUsers"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]usecase.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	return users, nil
}

func (r *memRepo) GetUserByID(_ context.Context, id uuid.UUID, opt usecase.GetUserOption) (usecase.User, error) {
	if err := r.failing("GetUserByID"); err != nil {
		return usecase.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return usecase.User{}, notFoundErr("user")
	}
	u.Places = slices.Clone(u.Places)
	if opt.IncludePlaces {
		for _, pid := range u.Places {
			if p, ok := r.places[pid]; ok {
				u.PlaceList = append(u.PlaceList, p)
			}
		}
	}
	return u, nil
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (usecase.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return usecase.User{}, notFoundErr("user")
}

func (r *memRepo) CreateUser(_ context.Context, u usecase.User) (usecase.User, error) {
	if err := r.failing("CreateUser"); err != nil {
		return usecase.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	r.users[u.ID] = u
	return u, nil
}

func (r *memRepo) AppendUserPlace(_ context.Context, userID, placeID uuid.UUID) error {
	if err := r.failing("AppendUserPlace"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return notFoundErr("user")
	}
	if _, ok := r.places[placeID]; !ok {
		return notFoundErr("place")
	}
	if !slices.Contains(u.Places, placeID) {
		u.Places = append(slices.Clone(u.Places), placeID)
		r.users[userID] = u
	}
	return nil
}

func (r *memRepo) RemoveUserPlace(_ context.Context, userID, placeID uuid.UUID) error {
	if err := r.failing("RemoveUserPlace"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return notFoundErr("user")
	}
	u.Places = slices.DeleteFunc(slices.Clone(u.Places), func(id uuid.UUID) bool { return id == placeID })
	r.users[userID] = u
	return nil
}

func (r *memRepo) ListOrphanedPlaces(context.Context) ([]usecase.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []usecase.Place
	for _, p := range r.places {
		if _, ok := r.users[p.CreatorID]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) ListUnlinkedPlaces(context.Context) ([]usecase.Place, error) {
	r.mu.Lock()
	var out []usecase.Place
	for _, p := range r.places {
		if u, ok := r.users[p.CreatorID]; ok && !slices.Contains(u.Places, p.ID) {
			out = append(out, p)
		}
	}
	r.mu.Unlock()

	if r.afterUnlinkedScan != nil {
		r.afterUnlinkedScan()
	}
	return out, nil
}

// linkRaw appends to a user's list without any checks.
func (r *memRepo) linkRaw(userID, placeID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.Places = append(slices.Clone(u.Places), placeID)
	r.users[userID] = u
}

func (r *memRepo) ListDanglingPlaceRefs(context.Context) ([]usecase.PlaceRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []usecase.PlaceRef
	for _, u := range r.users {
		for _, pid := range u.Places {
			if _, ok := r.places[pid]; !ok {
				out = append(out, usecase.PlaceRef{UserID: u.ID, PlaceID: pid})
			}
		}
	}
	return out, nil
}

func (r *memRepo) ListPlaceImages(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.places {
		out = append(out, p.Image)
	}
	return out, nil
}

func (r *memRepo) CreateJob(_ context.Context, j usecase.Job) (usecase.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j.ID = uuid.New()
	j.CreatedAt = time.Now()
	r.jobs[j.ID] = j
	return j, nil
}

func (r *memRepo) UpdateJob(_ context.Context, j usecase.Job) (usecase.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return usecase.Job{}, notFoundErr("job")
	}
	r.jobs[j.ID] = j
	return j, nil
}

func (r *memRepo) ListJobs(context.Context, usecase.ListJobsOption) ([]usecase.Job, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []usecase.Job
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out, len(out), nil
}

type fakeGeocoder struct {
	loc   usecase.Location
	err   error
	calls int
	mu    sync.Mutex
}

func (g *fakeGeocoder) Resolve(context.Context, string) (usecase.Location, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.loc, g.err
}

type fakeIdentity struct{}

func (fakeIdentity) IssueToken(id uuid.UUID) (string, error) { return "tok-" + id.String(), nil }

func (fakeIdentity) VerifyToken(token string) (uuid.UUID, error) {
	if len(token) < 4 {
		return uuid.Nil, errors.New("malformed token")
	}
	return uuid.Parse(token[4:])
}

type fakeQueue struct {
	mu         sync.Mutex
	removals   []string
	reconciles int
	err        error
}

func (q *fakeQueue) EnqueueAssetRemoval(_ context.Context, path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removals = append(q.removals, path)
	return q.err
}

func (q *fakeQueue) EnqueueReconcile(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reconciles++
	return q.err
}

// flakyAssets fails Remove while removeErr is set.
type flakyAssets struct {
	usecase.AssetStore
	removeErr error
}

func (f *flakyAssets) Remove(ctx context.Context, path string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.AssetStore.Remove(ctx, path)
}

type fixture struct {
	repo     *memRepo
	geocoder *fakeGeocoder
	assets   *flakyAssets
	queue    *fakeQueue
	dir      string
	uc       usecase.Usecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		repo:     newMemRepo(),
		geocoder: &fakeGeocoder{loc: usecase.Location{Lat: 40.7484405, Lng: -73.9878584}},
		assets:   &flakyAssets{AssetStore: filestorage.New(filestorage.NewLocalStorage(dir, "http://localhost:8080"))},
		queue:    &fakeQueue{},
		dir:      dir,
	}
	f.uc = usecase.New(f.repo, f.geocoder, f.assets, fakeIdentity{}, f.queue,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

// files lists stored image keys.
func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	var keys []string
	err := filepath.WalkDir(f.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(f.dir, p)
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return keys
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 100, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func createCmd(t *testing.T, userID uuid.UUID) usecase.CreatePlaceCommand {
	return usecase.CreatePlaceCommand{
		UserID:      userID,
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		Image: usecase.Upload{
			Reader:      bytes.NewReader(pngImage(t)),
			ContentType: "image/png",
		},
	}
}
