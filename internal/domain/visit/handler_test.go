package visit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/clinic/internal/domain/scheduling"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_StartVisitStrict(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	apptID := f.appointment(t, scheduling.StatusScheduled)

	c := e.NewContext(jsonRequest(http.MethodPost, "/?strict=true", `{"complaint":"pain"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(apptID, 10))
	he, ok := h.StartVisit(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unchecked appointment, got %v", he)
	}

	rec := httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/", `{"complaint":"pain"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(apptID, 10))
	if err := h.StartVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"OPEN"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_ItemLifecycle(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	v := f.openVisit(t)
	id := strconv.FormatInt(v.ID, 10)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"procedure_id":2}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h.AddItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.TotalAmount != 1500 || len(got.Items) != 1 {
		t.Fatalf("unexpected visit %+v", got)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPut, "/", `{"price":1200}`), rec)
	c.SetParamNames("id", "itemId")
	c.SetParamValues(id, strconv.FormatInt(got.Items[0].ID, 10))
	if err := h.UpdateItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total_amount":1200`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/", `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(id)
	if he, ok := h.AddItem(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Error("expected 400 without procedure_id")
	}
}

func TestHandler_GetVisitByAppointment_NotFound(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("77")
	if he, ok := h.GetVisitByAppointment(c).(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Error("expected 404")
	}
}

func TestHandler_DeletePrescription(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	v := f.openVisit(t)
	rx := &Prescription{Medication: "Chlorhexidine mouthwash"}
	if err := f.svc.AddPrescription(t.Context(), v.ID, rx); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("rxId")
	c.SetParamValues(strconv.FormatInt(rx.ID, 10))
	if err := h.DeletePrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
