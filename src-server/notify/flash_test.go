package notify_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"attendex/src-server/notify"
)

func TestFlashRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	notify.WriteFlash(rec, []notify.Toast{
		notify.Success("Event created"),
		{Kind: "bogus", Message: "dropped"},
		notify.Error("  "),
	}, false)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	next := httptest.NewRecorder()
	toasts := notify.ReadFlash(next, req, false)
	if len(toasts) != 1 || toasts[0].Message != "Event created" || toasts[0].Kind != notify.KindSuccess {
		t.Fatalf("toasts = %+v", toasts)
	}

	cleared := next.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("flash cookie not expired: %+v", cleared)
	}
}

func TestReadFlashWithoutCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if toasts := notify.ReadFlash(httptest.NewRecorder(), req, false); toasts != nil {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestCollector(t *testing.T) {
	var c notify.Collector
	c.Notify(notify.Info("a"))
	c.Notify(notify.Warning("b"))
	got := c.Toasts()
	if len(got) != 2 || got[1].Kind != notify.KindWarning {
		t.Errorf("toasts = %+v", got)
	}
	if got[0].ID == got[1].ID {
		t.Error("toast ids should be unique")
	}
}

func TestFlashStaysUnderCookieLimit(t *testing.T) {
	long := strings.Repeat("Validation failed for row ", 28)

	// case: several long toasts keep the newest that fit
	rec := httptest.NewRecorder()
	var toasts []notify.Toast
	for i := range 5 {
		toasts = append(toasts, notify.Error(fmt.Sprintf("%d %s", i, long)))
	}
	notify.WriteFlash(rec, toasts, false)
	header := rec.Header().Get("Set-Cookie")
	if len(header) > 4000 {
		t.Fatalf("Set-Cookie is %d bytes", len(header))
	}
	got := readBack(t, rec)
	if len(got) == 0 || len(got) == 5 {
		t.Fatalf("%d toasts kept, want some but not all", len(got))
	}
	if last := got[len(got)-1].Message; !strings.HasPrefix(last, "4 ") || strings.HasSuffix(last, "…") {
		t.Errorf("newest toast was not kept intact: %q", last)
	}

	// case: one oversized toast is truncated instead of lost
	rec = httptest.NewRecorder()
	notify.WriteFlash(rec, []notify.Toast{notify.Warning(strings.Repeat("é", 4000))}, false)
	if n := len(rec.Header().Get("Set-Cookie")); n > 4000 {
		t.Fatalf("Set-Cookie is %d bytes", n)
	}
	got = readBack(t, rec)
	if len(got) != 1 || !strings.HasSuffix(got[0].Message, "…") || !utf8.ValidString(got[0].Message) {
		t.Errorf("toasts = %+v", got)
	}
}

func readBack(t *testing.T, rec *httptest.ResponseRecorder) []notify.Toast {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return notify.ReadFlash(httptest.NewRecorder(), req, false)
}
