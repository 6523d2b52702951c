package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func post(t *testing.T, h echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h(echo.New().NewContext(req, rec))
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != want {
		t.Errorf("expected %d, got %d", want, he.Code)
	}
}

func TestHandler_Login(t *testing.T) {
	h := NewHandler(newFixture(t).svc)

	rec, err := post(t, h.Login, `{"username":"Admin","password":"admin123"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sess Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Token == "" || sess.User.Role != "admin" {
		t.Errorf("unexpected session %+v", sess)
	}

	_, err = post(t, h.Login, `{"identifier":"Admin","password":"wrong"}`)
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestHandler_Register(t *testing.T) {
	h := NewHandler(newFixture(t).svc)
	rec, err := post(t, h.Register, `{"full_name":"Ali Khan","mobile_no":"0300-1234567","password":"secret1"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"mrn":"MRN0001"`) || !strings.Contains(body, `"token":"`) {
		t.Errorf("unexpected body %s", body)
	}
	if strings.Contains(body, "password_hash") {
		t.Error("password hash must not be serialised")
	}
}

func TestHandler_AdminRecovery(t *testing.T) {
	h := NewHandler(newFixture(t).svc)

	_, err := post(t, h.VerifyAdminRecovery, `{"username":"Admin","phone":"0300-0000000"}`)
	assertHTTPStatus(t, err, http.StatusUnauthorized)

	rec, err := post(t, h.VerifyAdminRecovery, `{"username":"Admin","phone":"0300-1234567"}`)
	if err != nil || !strings.Contains(rec.Body.String(), `"verified":true`) {
		t.Fatalf("expected verification, got %v %s", err, rec.Body.String())
	}

	rec, err = post(t, h.ResetAdminPassword, `{"username":"Admin","phone":"0300-1234567","new_password":"changed1"}`)
	if err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %v %d", err, rec.Code)
	}
}

func TestHandler_PatientRecovery(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ali Khan", "0300-5555555", "")
	f.register(t, "Sara Khan", "0300-5555555", "")
	h := NewHandler(f.svc)

	rec, err := post(t, h.LookupPatientRecovery, `{"phone":"03005555555"}`)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Data []RecoveryMatch `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != 2 {
		t.Errorf("expected 2 matches, got %+v", out.Data)
	}

	_, err = post(t, h.LookupPatientRecovery, `{"phone":"03009999999"}`)
	assertHTTPStatus(t, err, http.StatusUnauthorized)

	rec, err = post(t, h.ResetPatientPassword, `{"mrn":"MRN0002","phone":"0300-5555555","new_password":"secret2"}`)
	if err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %v %d", err, rec.Code)
	}
}
