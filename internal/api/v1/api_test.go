package apiv1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appstate"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/auth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/database"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/mail"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// newTestApp serves the v1 API for a single session, signed in as user
// when user is not nil. Seeds run before the session is created.
func newTestApp(t *testing.T, user *models.Profile, seeds ...func(context.Context, *repository.Repositories)) *fiber.App {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	repos := repository.NewRepositories(db)

	registry := appcontext.NewRegistry(appcontext.Dependencies{
		Auth:         platform.NewAuthService(repos.Identity, mail.LogMailer{}, platform.DefaultAuthConfig("test-secret")),
		Bus:          platform.NewMemoryBus(),
		Repositories: repos,
		Blobs:        platform.NewMemoryBlobStore("http://localhost:4000"),
		AuthConfig:   auth.DefaultConfig("http://localhost:4000"),
	})
	t.Cleanup(registry.Stop)
	for _, seed := range seeds {
		seed(ctx, repos)
	}

	b := registry.Get(ctx, "api-session")
	if user != nil {
		u := *user
		require.NoError(t, repos.Profile.Create(ctx, &u))
		b.Store.Dispatch(appstate.SetUser{User: &u})
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		appcontext.Attach(c, b)
		usercontext.Set(c, usercontext.FromProfile(b.Store.Snapshot().CurrentUser))
		return c.Next()
	})
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer())
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

var driver = &models.Profile{ID: "u-api", FullName: "Kojo Antwi", Email: "kojo@example.com", VehiclePlate: "GR1234", Role: models.ROLE_USER}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	doc, err := LoadSpec(context.Background(), filepath.Join("..", "..", "..", "public", "docs", "v1", "openapi.yml"))
	require.NoError(t, err)

	for path, method := range map[string]string{
		"/ping":            http.MethodGet,
		"/me":              http.MethodGet,
		"/complaints":      http.MethodPost,
		"/complaints/{id}": http.MethodGet,
		"/documents":       http.MethodGet,
	} {
		item := doc.Paths.Find(path)
		require.NotNil(t, item, path)
		assert.NotNil(t, item.GetOperation(method), "%s %s", method, path)
	}
}

func TestPing(t *testing.T) {
	app := newTestApp(t, nil)
	status, body := call(t, app, http.MethodGet, "/api/v1/ping", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pong", body["ping"])
}

func TestSessionRoutesNeedSignIn(t *testing.T) {
	app := newTestApp(t, nil)
	for _, path := range []string{"/api/v1/me", "/api/v1/complaints", "/api/v1/documents"} {
		status, body := call(t, app, http.MethodGet, path, "")
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		assert.Equal(t, "unauthorized", body["error"], path)
	}
}

func TestMe(t *testing.T) {
	app := newTestApp(t, driver)
	status, body := call(t, app, http.MethodGet, "/api/v1/me", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["is_admin"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Kojo Antwi", user["full_name"])
}

func TestCreateAndListComplaints(t *testing.T) {
	app := newTestApp(t, driver)

	status, created := call(t, app, http.MethodPost, "/api/v1/complaints",
		`{"title":"Parked on walkway","description":"Blocks the school path","location":"Ring Road","category":"wrong_parking","offender_plate":"gt 4455"}`)
	require.Equal(t, fiber.StatusCreated, status, created)
	assert.Equal(t, "GT4455", created["offender_plate"])
	assert.Equal(t, "low", created["priority"])
	assert.Equal(t, "pending", created["status"])

	status, list := call(t, app, http.MethodGet, "/api/v1/complaints?status=pending", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, list["total"])

	status, list = call(t, app, http.MethodGet, "/api/v1/complaints?status=resolved", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, list["total"])

	id := int(created["id"].(float64))
	status, one := call(t, app, http.MethodGet, "/api/v1/complaints/"+strconv.Itoa(id), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Parked on walkway", one["title"])
}

func TestCreateComplaintErrors(t *testing.T) {
	app := newTestApp(t, driver)

	status, body := call(t, app, http.MethodPost, "/api/v1/complaints", `{"category":"wrong_parking"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", body["error"])
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "Title is required", fields["title"])

	status, body = call(t, app, http.MethodPost, "/api/v1/complaints",
		`{"title":"Speeding","description":"120 in a 50 zone","location":"N1","category":"overspeeding","offender_plate":"GT4455"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["error"])
}

func TestGetComplaintErrors(t *testing.T) {
	app := newTestApp(t, driver)

	status, body := call(t, app, http.MethodGet, "/api/v1/complaints/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "bad_request", body["error"])

	status, body = call(t, app, http.MethodGet, "/api/v1/complaints/404", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestListDocumentsEmpty(t *testing.T) {
	app := newTestApp(t, driver)
	status, body := call(t, app, http.MethodGet, "/api/v1/documents", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, body["total"])
}

func TestPlateOwnerSeesReporterWithoutContactDetails(t *testing.T) {
	reporter := models.Profile{ID: "u-reporter", FullName: "Ama Mensah", Email: "ama@example.com", PhoneNumber: "0241234567", VehiclePlate: "AS9876", Role: models.ROLE_USER}
	var complaintID uint
	app := newTestApp(t, driver, func(ctx context.Context, repos *repository.Repositories) {
		r := reporter
		require.NoError(t, repos.Profile.Create(ctx, &r))
		complaint := models.Complaint{
			Title:         "Blocked my gate",
			Description:   "Parked across the driveway all night",
			Location:      "Osu",
			Category:      "blocked_driveway",
			OffenderPlate: "GR1234",
			ReportedBy:    r.ID,
		}
		require.NoError(t, repos.Complaint.Create(ctx, &complaint))
		complaintID = complaint.ID
	})

	status, list := call(t, app, http.MethodGet, "/api/v1/complaints", "")
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 1, list["total"])
	status, one := call(t, app, http.MethodGet, "/api/v1/complaints/"+strconv.Itoa(int(complaintID)), "")
	require.Equal(t, fiber.StatusOK, status)

	for _, body := range []map[string]interface{}{list["complaints"].([]interface{})[0].(map[string]interface{}), one} {
		summary := body["reporter"].(map[string]interface{})
		assert.Equal(t, "Ama Mensah", summary["full_name"])
		assert.Equal(t, "AS9876", summary["plate_or_badge"])
		assert.NotContains(t, summary, "email")
		assert.NotContains(t, summary, "phone_number")

		raw, err := json.Marshal(body)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "ama@example.com")
		assert.NotContains(t, string(raw), "0241234567")
	}
}
