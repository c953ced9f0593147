package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bukukas/models"
	"bukukas/pkg/ledger"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// setupTestApp wires the real routes over a throwaway sqlite database so the
// whole request path runs without a Postgres instance.
func setupTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	var err error
	db, err = gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Transaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err := db.Create(&models.User{Username: "admin", HashedPassword: hashed}).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	ledgerSvc = ledger.NewService(ledger.NewStore(db))
	r := gin.New()
	setupRoutes(r)
	return r
}

func loginToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin123"})
	resp := performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", out)
	}
	return token
}

func postTransaction(t *testing.T, r *gin.Engine, token string, payload map[string]any) map[string]any {
	t.Helper()
	body, _ := json.Marshal(payload)
	resp := performRequest(r, http.MethodPost, "/api/transactions", bytes.NewBuffer(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("create failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	return out
}

func TestAuthStatusCodes(t *testing.T) {
	r := setupTestApp(t)

	// no Authorization header at all
	resp := performRequest(r, http.MethodGet, "/api/transactions", nil, "", "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing token got %d", resp.Code)
	}
	// garbage bearer token
	resp = performRequest(r, http.MethodGet, "/api/transactions", nil, "not-a-jwt", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token got %d", resp.Code)
	}
	// wrong credentials
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp = performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials got %d", resp.Code)
	}
}

func TestTransactionCRUDFlow(t *testing.T) {
	r := setupTestApp(t)
	token := loginToken(t, r)

	created := postTransaction(t, r, token, map[string]any{
		"tanggal": "05-01-2024", "waktu": "08:30", "nama_akun": "kas",
		"pemasukan": 100, "keterangan": "setoran",
	})
	if created["saldo"].(float64) != 100 {
		t.Fatalf("expected saldo 100 got %v", created["saldo"])
	}
	if created["tanggal"].(string) != "05-01-2024" {
		t.Fatalf("expected display date 05-01-2024 got %v", created["tanggal"])
	}
	second := postTransaction(t, r, token, map[string]any{
		"tanggal": "06-01-2024", "nama_akun": "kas", "pengeluaran": 30,
	})
	if second["saldo"].(float64) != 70 {
		t.Fatalf("expected saldo 70 got %v", second["saldo"])
	}

	// fetch one
	resp := performRequest(r, http.MethodGet, "/api/transactions/1", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// paginated listing envelope
	resp = performRequest(r, http.MethodGet, "/api/transactions?page=1&limit=10", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list failed status=%d", resp.Code)
	}
	var listOut struct {
		Data       []map[string]any  `json:"data"`
		Pagination ledger.Pagination `json:"pagination"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &listOut)
	if len(listOut.Data) != 2 || listOut.Pagination.TotalItems != 2 {
		t.Fatalf("unexpected listing: %s", resp.Body.String())
	}
	// most recent first
	if int(listOut.Data[0]["id"].(float64)) != int(second["id"].(float64)) {
		t.Fatalf("expected newest first, got %v", listOut.Data[0]["id"])
	}

	// partial update cascades
	upd, _ := json.Marshal(map[string]any{"pemasukan": 200})
	resp = performRequest(r, http.MethodPut, "/api/transactions/1", bytes.NewBuffer(upd), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("update failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/api/transactions/2", nil, token, "")
	var after map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &after)
	if after["saldo"].(float64) != 170 {
		t.Fatalf("expected cascaded saldo 170 got %v", after["saldo"])
	}

	// delete one, then everything
	resp = performRequest(r, http.MethodDelete, "/api/transactions/1", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete failed status=%d", resp.Code)
	}
	resp = performRequest(r, http.MethodDelete, "/api/transactions", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete all failed status=%d", resp.Code)
	}
}

func TestNotFoundAndBadParams(t *testing.T) {
	r := setupTestApp(t)
	token := loginToken(t, r)

	body, _ := json.Marshal(map[string]any{"pemasukan": 1})
	resp := performRequest(r, http.MethodPut, "/api/transactions/999", bytes.NewBuffer(body), token, "application/json")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown update id got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodDelete, "/api/transactions/999", nil, token, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown delete id got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodGet, "/api/transactions?page=abc&limit=10", nil, token, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad pagination got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodGet, "/api/transactions/range/01-01-2024/31-12-2024?page=-1&limit=10", nil, token, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative page got %d", resp.Code)
	}
}

func TestDateFilterRoutes(t *testing.T) {
	r := setupTestApp(t)
	token := loginToken(t, r)
	postTransaction(t, r, token, map[string]any{"tanggal": "05-01-2024", "nama_akun": "kas", "pemasukan": 10})
	postTransaction(t, r, token, map[string]any{"tanggal": "20-02-2024", "nama_akun": "bank", "pemasukan": 20})

	resp := performRequest(r, http.MethodGet, "/api/transactions/date/05-01-2024", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("date route failed status=%d", resp.Code)
	}
	var items []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &items)
	if len(items) != 1 || items[0]["nama_akun"] != "kas" {
		t.Fatalf("unexpected date listing: %s", resp.Body.String())
	}

	resp = performRequest(r, http.MethodGet, "/api/transactions/account/bank", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("account route failed status=%d", resp.Code)
	}
	resp = performRequest(r, http.MethodGet, "/api/transactions/range/01-01-2024/31-01-2024", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("range route failed status=%d", resp.Code)
	}
	var rangeOut struct {
		Data []map[string]any `json:"data"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &rangeOut)
	if len(rangeOut.Data) != 1 {
		t.Fatalf("expected 1 row in january range got %d", len(rangeOut.Data))
	}
}

func TestUploadAndExportCSV(t *testing.T) {
	r := setupTestApp(t)
	token := loginToken(t, r)

	csvBody := "tanggal,waktu,nama_akun,pemasukan,pengeluaran,saldo,keterangan\n" +
		"05-01-2024,08:30:00,kas,100,0,0,masuk\n" +
		"06-01-2024,,kas,0,40,0,keluar\n"
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("file", "import.csv")
	_, _ = w.Write([]byte(csvBody))
	_ = mw.Close()
	resp := performRequest(r, http.MethodPost, "/api/transactions/upload-csv", buf, token, mw.FormDataContentType())
	if resp.Code != http.StatusOK {
		t.Fatalf("upload failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "2 transactions uploaded.") {
		t.Fatalf("unexpected upload message: %s", resp.Body.String())
	}

	// rows were created in file order, so the second builds on the first
	resp = performRequest(r, http.MethodGet, "/api/transactions/2", nil, token, "")
	var second map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &second)
	if second["saldo"].(float64) != 60 {
		t.Fatalf("expected imported saldo 60 got %v", second["saldo"])
	}

	// missing multipart field
	resp = performRequest(r, http.MethodPost, "/api/transactions/upload-csv", nil, token, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file got %d", resp.Code)
	}

	resp = performRequest(r, http.MethodGet, "/api/transactions/export", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("export failed status=%d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	if lines[0] != "id,tanggal,waktu,nama_akun,pemasukan,pengeluaran,saldo,keterangan" {
		t.Fatalf("unexpected export header: %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("expected 2 exported rows got %d lines", len(lines))
	}
}

func TestChangePasswordFlow(t *testing.T) {
	r := setupTestApp(t)
	token := loginToken(t, r)

	body, _ := json.Marshal(map[string]string{
		"currentPassword": "admin123",
		"newPassword":     "rahasia-baru",
		"confirmPassword": "berbeda",
	})
	resp := performRequest(r, http.MethodPut, "/api/auth/change-password", bytes.NewBuffer(body), token, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched confirm got %d", resp.Code)
	}

	body, _ = json.Marshal(map[string]string{
		"currentPassword": "admin123",
		"newPassword":     "rahasia-baru",
		"confirmPassword": "rahasia-baru",
	})
	resp = performRequest(r, http.MethodPut, "/api/auth/change-password", bytes.NewBuffer(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("change password failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// old credential no longer works, new one does
	body, _ = json.Marshal(map[string]string{"username": "admin", "password": "admin123"})
	resp = performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for old password got %d", resp.Code)
	}
	body, _ = json.Marshal(map[string]string{"username": "admin", "password": "rahasia-baru"})
	resp = performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("login with new password failed status=%d", resp.Code)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	r := setupTestApp(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin123"})
	resp := performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(body), "", "application/json")
	var loginOut map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginOut)
	refresh, _ := loginOut["refresh_token"].(string)
	if refresh == "" {
		t.Fatalf("no refresh token in login response: %+v", loginOut)
	}

	body, _ = json.Marshal(map[string]string{"refresh_token": refresh})
	resp = performRequest(r, http.MethodPost, "/api/auth/refresh", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// the old token was rotated out
	body, _ = json.Marshal(map[string]string{"refresh_token": refresh})
	resp = performRequest(r, http.MethodPost, "/api/auth/refresh", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked refresh token got %d", resp.Code)
	}
}
