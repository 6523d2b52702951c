package billing

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/clinic/internal/platform/auth"
)

func TestHandler_FinalizeAndFetch(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	v := f.visitWithItems(t, 1, 2)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(v.ID, 10))
	if err := h.FinalizeVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"invoice_no":"INV-2025-0001"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(v.ID, 10))
	if he, ok := h.FinalizeVisit(c).(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409 on second finalize")
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.GetInvoiceDetails(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"full_name":"Ali Khan"`) || !strings.Contains(body, `"total_amount":2000`) {
		t.Errorf("unexpected details %s", body)
	}
}

func TestHandler_ListMyInvoices(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	v := f.visitWithItems(t, 1)
	if _, err := f.svc.FinalizeVisit(t.Context(), v.ID); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Roles: []string{auth.RolePatient}, PatientID: 1}))
	rec := httptest.NewRecorder()
	if err := h.ListMyInvoices(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_ListInvoices_Search(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc), echo.New()
	v := f.visitWithItems(t, 1)
	if _, err := f.svc.FinalizeVisit(t.Context(), v.ID); err != nil {
		t.Fatal(err)
	}

	for q, want := range map[string]string{"inv-2025-0001": `"total":1`, "nomatch": `"total":0`} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?q="+q, nil), rec)
		if err := h.ListInvoices(c); err != nil {
			t.Fatalf("q=%q: unexpected error: %v", q, err)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("q=%q: expected %s in %s", q, want, rec.Body.String())
		}
	}
}
