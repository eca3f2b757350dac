package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"hostel/internal/config"
	"hostel/internal/hostel"
	"hostel/internal/photos"
	"hostel/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testApp struct {
	router *gin.Engine
	db     *store.DB
	photos *photos.Store
	redis  *miniredis.Miniredis
	cfg    config.App
}

func newTestApp(t *testing.T, adminPassword string) *testApp {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	cache := store.NewRedis(mr.Addr())
	t.Cleanup(func() { _ = cache.Close() })

	ph, err := photos.NewStore(t.TempDir(), nil, zap.NewNop())
	require.NoError(t, err)

	cfg := config.App{
		JWTIssuer:     "hostel-api",
		JWTSigningKey: "test-signing-secret",
		AccessTTL:     time.Hour,
		AdminUser:     "admin",
		AdminPassword: adminPassword,
	}
	repo := hostel.NewRepository(db.Client)
	svc := hostel.NewService(repo, ph, zap.NewNop())
	h := New(svc, ph, db, cache, cfg, zap.NewNop())

	router := gin.New()
	h.Routes(router)
	return &testApp{router: router, db: db, photos: ph, redis: mr, cfg: cfg}
}

func (a *testApp) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return a.requestWithToken(t, method, path, body, "")
}

func (a *testApp) requestWithToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func (a *testApp) createStudent(t *testing.T, name, room, roomType string) int64 {
	t.Helper()
	w := a.request(t, http.MethodPost, "/api/students", gin.H{
		"hostel_code":  "H1",
		"name":         name,
		"room_number":  room,
		"room_type":    roomType,
		"monthly_rent": 4500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	return int64(data["id"].(float64))
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, w)
	require.Equal(t, true, body["success"], w.Body.String())
	d, isMap := body["data"].(map[string]any)
	require.True(t, isMap, "data is not an object: %s", w.Body.String())
	return d
}

func dataList(t *testing.T, w *httptest.ResponseRecorder) []any {
	t.Helper()
	body := decode(t, w)
	require.Equal(t, true, body["success"], w.Body.String())
	list, isList := body["data"].([]any)
	require.True(t, isList, "data is not an array: %s", w.Body.String())
	return list
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, "")

	w := app.request(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["db"])
	assert.Equal(t, true, body["redis"])

	// redis going away degrades nothing but its own flag
	app.redis.Close()
	w = app.request(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["redis"])
}

func TestStudentCRUD(t *testing.T) {
	app := newTestApp(t, "")

	id := app.createStudent(t, "Asha", "101", "double")

	w := app.request(t, http.MethodGet, fmt.Sprintf("/api/students/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := data(t, w)
	assert.Equal(t, "Asha", st["name"])
	assert.Equal(t, "H1", st["hostel_code"])
	assert.Equal(t, false, st["is_deleted"])

	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/students/%d", id), gin.H{"phone": "9876543210"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student updated", decode(t, w)["message"])

	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/students/%d", id), nil)
	assert.Equal(t, "9876543210", data(t, w)["phone"])

	// unknown id is a business failure, not an HTTP error
	w = app.request(t, http.MethodGet, "/api/students/9999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "student not found", body["message"])

	w = app.request(t, http.MethodGet, "/api/students/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid id", decode(t, w)["error"])

	w = app.request(t, http.MethodPost, "/api/students", gin.H{"hostel_code": "H1"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/students/%d", id), gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no fields to update", decode(t, w)["error"])
}

func TestRosterEndpoints(t *testing.T) {
	app := newTestApp(t, "")

	asha := app.createStudent(t, "Asha", "101", "double")
	app.createStudent(t, "Vikram", "101", "double")
	meena := app.createStudent(t, "Meena", "102", "single")

	w := app.request(t, http.MethodGet, "/api/students/list?hostel=H1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, w), 3)

	w = app.request(t, http.MethodGet, "/api/students/list", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = app.request(t, http.MethodGet, "/api/students/by-room?hostel=H1&room=101", nil)
	assert.Len(t, dataList(t, w), 2)

	w = app.request(t, http.MethodGet, "/api/students/by-roomtype?hostel=H1&room_type=single", nil)
	list := dataList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Meena", list[0].(map[string]any)["name"])

	for _, q := range []string{"Asha", "asha", "ASHA"} {
		w = app.request(t, http.MethodGet, "/api/students?hostel=H1&name="+q, nil)
		list = dataList(t, w)
		require.Len(t, list, 1, "query %q", q)
		assert.Equal(t, float64(asha), list[0].(map[string]any)["id"])
	}

	// empty rosters serialize as [], never null
	w = app.request(t, http.MethodGet, "/api/students/old?hostel=H1", nil)
	assert.Empty(t, dataList(t, w))

	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/students/%d", meena), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.request(t, http.MethodGet, "/api/students/old?hostel=H1", nil)
	list = dataList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Meena", list[0].(map[string]any)["name"])
}

func TestStudentLifecycle(t *testing.T) {
	app := newTestApp(t, "")

	id := app.createStudent(t, "Asha", "101", "double")
	path := fmt.Sprintf("/api/students/%d", id)

	w := app.request(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student deleted", decode(t, w)["message"])

	// second delete is a business failure
	w = app.request(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = app.request(t, http.MethodGet, path, nil)
	assert.Equal(t, false, decode(t, w)["success"])

	w = app.request(t, http.MethodGet, path+"?include_deleted=true", nil)
	st := data(t, w)
	assert.Equal(t, true, st["is_deleted"])
	assert.NotEmpty(t, st["deleted_at"])

	w = app.request(t, http.MethodPost, path+"/restore", nil)
	assert.Equal(t, "student restored", decode(t, w)["message"])

	// restore twice, still fine
	w = app.request(t, http.MethodPost, path+"/restore", nil)
	assert.Equal(t, true, decode(t, w)["success"])

	w = app.request(t, http.MethodGet, path, nil)
	assert.Equal(t, false, data(t, w)["is_deleted"])

	w = app.request(t, http.MethodDelete, path+"/permanent", nil)
	assert.Equal(t, "student permanently deleted", decode(t, w)["message"])

	w = app.request(t, http.MethodGet, path+"?include_deleted=true", nil)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestAttendanceEndpoints(t *testing.T) {
	app := newTestApp(t, "")

	asha := app.createStudent(t, "Asha", "101", "triple")
	vikram := app.createStudent(t, "Vikram", "101", "triple")
	app.createStudent(t, "Meena", "101", "triple")

	w := app.request(t, http.MethodPost, "/api/rooms/101/attendance", gin.H{
		"hostel_code": "H1",
		"date":        "2024-05-01",
		"absent_ids":  []int64{vikram},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(3), data(t, w)["marked"])

	day := "/api/rooms/101/attendance?hostel=H1&date=2024-05-01"
	w = app.request(t, http.MethodGet, day, nil)
	list := dataList(t, w)
	require.Len(t, list, 3)
	statuses := make(map[string]string, 3)
	for _, item := range list {
		rec := item.(map[string]any)
		statuses[rec["student_name"].(string)] = rec["status"].(string)
	}
	assert.Equal(t, "Present", statuses["Asha"])
	assert.Equal(t, "Absent", statuses["Vikram"])
	assert.Equal(t, "Present", statuses["Meena"])

	// rerun flips everyone present and leaves three rows
	w = app.request(t, http.MethodPost, "/api/rooms/101/attendance", gin.H{
		"hostel_code": "H1",
		"date":        "2024-05-01",
	})
	assert.Equal(t, float64(3), data(t, w)["marked"])
	w = app.request(t, http.MethodGet, day, nil)
	list = dataList(t, w)
	require.Len(t, list, 3)
	for _, item := range list {
		assert.Equal(t, "Present", item.(map[string]any)["status"])
	}

	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/students/%d/attendance", asha), nil)
	history := dataList(t, w)
	require.Len(t, history, 1)
	recID := int64(history[0].(map[string]any)["id"].(float64))

	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/attendance/%d", recID), gin.H{"status": "Late"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/attendance/%d", recID), gin.H{"status": "Absent"})
	assert.Equal(t, "attendance updated", decode(t, w)["message"])

	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/attendance/%d", recID), nil)
	assert.Equal(t, "attendance deleted", decode(t, w)["message"])

	// an empty room marks nobody and still succeeds
	w = app.request(t, http.MethodPost, "/api/rooms/999/attendance", gin.H{
		"hostel_code": "H1",
		"date":        "2024-05-01",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), data(t, w)["marked"])
}

func TestEBAllocationEndpoints(t *testing.T) {
	app := newTestApp(t, "")

	app.createStudent(t, "Asha", "101", "double")
	app.createStudent(t, "Vikram", "101", "double")

	w := app.request(t, http.MethodPost, "/api/rooms/101/eb-batch", gin.H{
		"hostel_code": "H1",
		"date":        "2024-05-01",
		"eb_total":    101,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := data(t, w)
	assert.Equal(t, float64(2), result["students"])
	assert.Equal(t, float64(50), result["eb_share"])

	w = app.request(t, http.MethodGet, "/api/rooms/101/monthly-account?hostel=H1&date=2024-05-01", nil)
	rows := dataList(t, w)
	require.Len(t, rows, 2)
	for _, item := range rows {
		row := item.(map[string]any)
		account, has := row["account"].(map[string]any)
		require.True(t, has, "missing account for %v", row["name"])
		assert.Equal(t, float64(50), account["eb_share"])
		assert.Equal(t, float64(50), account["eb_remaining"])
	}

	w = app.request(t, http.MethodPost, "/api/rooms/999/eb-batch", gin.H{
		"hostel_code": "H1",
		"date":        "2024-05-01",
		"eb_total":    100,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "no active students in this room", body["message"])

	w = app.request(t, http.MethodPost, "/api/rooms/101/eb-batch", gin.H{
		"hostel_code": "H1",
		"date":        "2024-05-01",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlyAccountEndpoints(t *testing.T) {
	app := newTestApp(t, "")

	id := app.createStudent(t, "Asha", "101", "double")
	base := fmt.Sprintf("/api/students/%d/monthly-account", id)

	w := app.request(t, http.MethodPost, base, gin.H{"date": "2024-05-01", "rent_paid": 4500})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	acc := data(t, w)
	accID := int64(acc["id"].(float64))
	assert.Equal(t, "101", acc["room_number"])

	w = app.request(t, http.MethodPost, base, gin.H{"date": "2024-05-01", "rent_paid": 1})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "monthly account already exists for this month", body["message"])

	w = app.request(t, http.MethodGet, base, nil)
	require.Len(t, dataList(t, w), 1)

	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/monthly_accounts/%d", accID), gin.H{"rent_remaining": 0, "eb_paid": 10})
	assert.Equal(t, "monthly account updated", decode(t, w)["message"])

	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/monthly_accounts/%d", accID), nil)
	assert.Equal(t, "monthly account deleted", decode(t, w)["message"])

	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/monthly_accounts/%d", accID), nil)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestLedgerEndpoints(t *testing.T) {
	app := newTestApp(t, "")

	id := app.createStudent(t, "Asha", "101", "double")

	w := app.request(t, http.MethodPost, fmt.Sprintf("/api/students/%d/rent", id), gin.H{
		"date": "2024-05-01", "amount_paid": 2000, "balance_remaining": 2500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entryID := int64(data(t, w)["id"].(float64))

	// the two ledgers are independent tables
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/students/%d/rent", id), nil)
	require.Len(t, dataList(t, w), 1)
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/students/%d/extra-food", id), nil)
	assert.Empty(t, dataList(t, w))

	w = app.request(t, http.MethodPost, fmt.Sprintf("/api/students/%d/extra-food", id), gin.H{"amount_paid": 300})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.request(t, http.MethodPut, fmt.Sprintf("/api/rent_payments/%d", entryID), gin.H{"amount_paid": 2100})
	assert.Equal(t, "entry updated", decode(t, w)["message"])

	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/rent_payments/%d", entryID), nil)
	assert.Equal(t, "entry deleted", decode(t, w)["message"])

	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/rent_payments/%d", entryID), nil)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "rent payment not found", body["message"])

	w = app.request(t, http.MethodPost, fmt.Sprintf("/api/students/%d/rent", id), gin.H{"amount_paid": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, "s3cret")

	w := app.request(t, http.MethodGet, "/api/students/list?hostel=H1", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing bearer token", decode(t, w)["error"])

	w = app.requestWithToken(t, http.MethodGet, "/api/students/list?hostel=H1", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", decode(t, w)["error"])

	w = app.request(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", decode(t, w)["error"])

	w = app.request(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := data(t, w)
	token := login["access_token"].(string)
	require.NotEmpty(t, token)
	assert.Greater(t, login["expires_at"].(float64), float64(time.Now().Unix()))

	w = app.requestWithToken(t, http.MethodGet, "/api/students/list?hostel=H1", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	// health stays public
	w = app.request(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWithoutPasswordConfigured(t *testing.T) {
	app := newTestApp(t, "")

	w := app.request(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "authentication is not configured", body["message"])

	// and the API is open
	w = app.request(t, http.MethodGet, "/api/students/list?hostel=H1", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func uploadPhoto(t *testing.T, app *testApp, id int64, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/students/%d/photo", id), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func localPhotoFile(app *testApp, servedPath string) string {
	return filepath.Join(app.photos.Dir(), filepath.Base(servedPath))
}

func TestPhotoUploadAndCleanup(t *testing.T) {
	app := newTestApp(t, "")
	id := app.createStudent(t, "Asha", "101", "double")
	content := []byte("first photo bytes")

	w := uploadPhoto(t, app, id, "face.png", content)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := data(t, w)["photo_path"].(string)
	assert.True(t, len(first) > len("/uploads/") && first[:len("/uploads/")] == "/uploads/", first)
	require.FileExists(t, localPhotoFile(app, first))

	// the file is served back at its recorded path
	w = app.request(t, http.MethodGet, first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())

	// a replacement retires the old file
	w = uploadPhoto(t, app, id, "face2.jpg", []byte("second photo bytes"))
	require.Equal(t, http.StatusOK, w.Code)
	second := data(t, w)["photo_path"].(string)
	require.NotEqual(t, first, second)
	assert.NoFileExists(t, localPhotoFile(app, first))
	require.FileExists(t, localPhotoFile(app, second))

	w = uploadPhoto(t, app, id, "resume.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "photo must be jpg, jpeg, png or webp", decode(t, w)["error"])

	// purging the student removes the stored photo too
	w = app.request(t, http.MethodDelete, fmt.Sprintf("/api/students/%d/permanent", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, localPhotoFile(app, second))
}

func TestExportStudents(t *testing.T) {
	app := newTestApp(t, "")
	app.createStudent(t, "Asha", "101", "double")
	app.createStudent(t, "Vikram", "102", "single")

	w := app.request(t, http.MethodGet, "/api/students/export?hostel=H1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "students_H1_")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Students", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)
	name, err := f.GetCellValue("Students", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Asha", name)
	name, err = f.GetCellValue("Students", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Vikram", name)

	w = app.request(t, http.MethodGet, "/api/students/export", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageFailuresBecome500(t *testing.T) {
	app := newTestApp(t, "")
	require.NoError(t, app.db.Close())

	w := app.request(t, http.MethodGet, "/api/students/list?hostel=H1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "internal error", body["error"])
}
