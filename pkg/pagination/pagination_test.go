package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=10000", MaxLimit, 0},
		{"?limit=-3&offset=-1", DefaultLimit, 0},
		{"?limit=abc", DefaultLimit, 0},
	}

	for _, tt := range tests {
		p := paramsFor(tt.query)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%q: got limit=%d offset=%d, want %d/%d", tt.query, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	resp := Slice(items, Params{Limit: 2, Offset: 1})
	page := resp.Data.([]int)
	if len(page) != 2 || page[0] != 2 || page[1] != 3 {
		t.Errorf("unexpected page %v", page)
	}
	if resp.Total != 5 || !resp.HasMore {
		t.Errorf("expected total 5 with more pages, got %+v", resp)
	}

	resp = Slice(items, Params{Limit: 10, Offset: 4})
	if len(resp.Data.([]int)) != 1 || resp.HasMore {
		t.Errorf("expected last page of 1, got %+v", resp)
	}

	resp = Slice(items, Params{Limit: 10, Offset: 50})
	if len(resp.Data.([]int)) != 0 {
		t.Errorf("expected empty page past the end, got %+v", resp)
	}
}

func TestSlice_NilInputEncodesAsEmpty(t *testing.T) {
	resp := Slice([]string(nil), Params{Limit: 10})
	if resp.Data.([]string) == nil {
		t.Error("expected non-nil empty slice so JSON renders []")
	}
}

func TestParams_HasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !p.HasNext(11) {
		t.Error("expected next page for 11 items")
	}
	if p.HasNext(10) {
		t.Error("expected no next page for 10 items")
	}
}
