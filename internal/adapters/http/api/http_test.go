package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/rally/internal/adapters/http/api"
	"github.com/okian/rally/internal/adapters/mq/worker"
	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type harness struct {
	t       *testing.T
	handler http.Handler
}

func newHarness(t *testing.T, opts ...api.Option) *harness {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tick := 0
	clock := func() time.Time {
		tick++
		return time.Date(2024, 5, 6, 12, tick, 0, 0, time.UTC)
	}
	svc := service.New(store, service.WithClock(clock))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Stop(context.Background())
		_ = store.Close()
	})
	opts = append([]api.Option{api.WithRateLimit(1000, 1000)}, opts...)
	return &harness{t: t, handler: api.NewServer(svc, opts...).Router(ctx)}
}

func (h *harness) do(method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) register(name string) model.Player {
	w := h.do(http.MethodPost, "/players", map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		h.t.Fatalf("register %s: %d %s", name, w.Code, w.Body.String())
	}
	var p model.Player
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	return p
}

func decode(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func matchBody(p1, p2 int64, s1, s2 int) map[string]any {
	return map[string]any{"player1_id": p1, "player2_id": p2, "score1": s1, "score2": s2}
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server over a fresh ledger", t, func() {
		h := newHarness(t)
		ana := h.register("ana")
		ben := h.register("ben")

		Convey("Health reports the store", func() {
			w := h.do(http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
		})

		Convey("An incoming request id is echoed", func() {
			w := h.do(http.MethodGet, "/healthz", nil, api.HeaderRequestID, "req-1")
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "req-1")
		})

		Convey("Metrics are exposed", func() {
			w := h.do(http.MethodGet, "/metrics", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "rally_ladder_players_registered_total")
		})

		Convey("Stats reflect the store", func() {
			var stats map[string]any
			w := h.do(http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w, &stats), ShouldBeNil)
			So(stats["players"], ShouldEqual, float64(2))
		})

		Convey("A duplicate name is a bad request", func() {
			w := h.do(http.MethodPost, "/players", map[string]string{"name": "ana"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
		})

		Convey("When ana beats ben", func() {
			w := h.do(http.MethodPost, "/matches", matchBody(ana.ID, ben.ID, 11, 7))
			So(w.Code, ShouldEqual, http.StatusCreated)
			var rec struct {
				Match    model.Match `json:"match"`
				Replayed bool        `json:"replayed"`
			}
			So(decode(w, &rec), ShouldBeNil)
			So(rec.Match.ID, ShouldBeGreaterThan, 0)

			Convey("Then the ladder has ana on top with a delta", func() {
				var ladder []map[string]any
				w := h.do(http.MethodGet, "/ladder", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w, &ladder), ShouldBeNil)
				So(ladder, ShouldHaveLength, 2)
				So(ladder[0]["name"], ShouldEqual, "ana")
				So(ladder[0]["mu"], ShouldAlmostEqual, 29.205473176557785, 1e-9)
				So(ladder[0]["delta"], ShouldNotBeNil)
			})

			Convey("Then head to head, wlt and predict answer", func() {
				path := fmt.Sprintf("/h2h?player1=%d&player2=%d", ben.ID, ana.ID)
				w := h.do(http.MethodGet, path, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"player2_wins":1`)

				So(h.do(http.MethodGet, "/wlt", nil).Code, ShouldEqual, http.StatusOK)

				path = fmt.Sprintf("/predict?player1=%d&player2=%d", ana.ID, ben.ID)
				w = h.do(http.MethodGet, path, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"blended"`)
			})

			Convey("Then per-player reads answer", func() {
				for _, suffix := range []string{"stats", "matches", "rating-history"} {
					w := h.do(http.MethodGet, fmt.Sprintf("/players/%d/%s", ana.ID, suffix), nil)
					So(w.Code, ShouldEqual, http.StatusOK)
				}
				w := h.do(http.MethodGet, fmt.Sprintf("/players/%d/rating-chart.png", ana.ID), nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
			})

			Convey("Then the workbook downloads", func() {
				w := h.do(http.MethodGet, "/ladder/export.xlsx", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "ladder.xlsx")
				So(w.Body.Len(), ShouldBeGreaterThan, 0)
			})

			Convey("Then recent matches and weekly include it", func() {
				var recent []map[string]any
				w := h.do(http.MethodGet, "/matches?limit=5", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w, &recent), ShouldBeNil)
				So(recent, ShouldHaveLength, 1)

				w = h.do(http.MethodGet, "/weekly?start=2024-05-05T00:00:00Z&end=2024-05-11T23:59:59Z", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"matches":1`)
			})

			Convey("Then deleting it answers 204 and a second delete 404", func() {
				path := fmt.Sprintf("/matches/%d", rec.Match.ID)
				So(h.do(http.MethodDelete, path, nil).Code, ShouldEqual, http.StatusNoContent)
				So(h.do(http.MethodDelete, path, nil).Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then removing ben answers 204", func() {
				So(h.do(http.MethodDelete, fmt.Sprintf("/players/%d", ben.ID), nil).Code, ShouldEqual, http.StatusNoContent)
				So(h.do(http.MethodGet, fmt.Sprintf("/players/%d/stats", ben.ID), nil).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("Invalid matches are rejected", func() {
			So(h.do(http.MethodPost, "/matches", matchBody(ana.ID, ben.ID, 9, 9)).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPost, "/matches", matchBody(ana.ID, ana.ID, 11, 9)).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPost, "/matches", matchBody(ana.ID, 99, 11, 9)).Code, ShouldEqual, http.StatusNotFound)
			So(h.do(http.MethodPost, "/matches", `{"player1_id":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPost, "/matches", `not json`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Bad query parameters are rejected", func() {
			So(h.do(http.MethodGet, "/h2h?player1=x&player2=2", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, fmt.Sprintf("/predict?player1=%d&player2=%d", ana.ID, ana.ID), nil).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/matches?limit=0", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/weekly?start=yesterday", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/players/abc/stats", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Idempotent retries return the original match", func() {
			body := matchBody(ana.ID, ben.ID, 11, 3)
			first := h.do(http.MethodPost, "/matches", body, api.HeaderIdempotencyKey, "abc")
			So(first.Code, ShouldEqual, http.StatusCreated)

			again := h.do(http.MethodPost, "/matches", body, api.HeaderIdempotencyKey, "abc")
			So(again.Code, ShouldEqual, http.StatusOK)
			So(again.Header().Get(api.HeaderReplayed), ShouldEqual, "true")

			other := h.do(http.MethodPost, "/matches", matchBody(ana.ID, ben.ID, 11, 4), api.HeaderIdempotencyKey, "abc")
			So(other.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Seasons can be switched", func() {
			w := h.do(http.MethodPut, "/seasons/current", map[string]int{"season": 3})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"current":3`)

			So(h.do(http.MethodPut, "/seasons/current", map[string]int{"season": 0}).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/seasons/3/ladder", nil).Code, ShouldEqual, http.StatusOK)
			So(h.do(http.MethodGet, "/seasons/x/ladder", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/seasons", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Admin routes need confirmation to clear", func() {
			So(h.do(http.MethodPost, "/admin/recompute", nil).Code, ShouldEqual, http.StatusOK)
			So(h.do(http.MethodDelete, "/admin/data", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodDelete, "/admin/data?confirm=DELETE", nil).Code, ShouldEqual, http.StatusNoContent)

			w := h.do(http.MethodGet, "/ladder", nil)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("Unknown routes are 404", func() {
			So(h.do(http.MethodGet, "/nope", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_RateLimit(t *testing.T) {
	Convey("Given a server allowing one write burst", t, func() {
		h := newHarness(t, api.WithRateLimit(0.001, 1))

		Convey("The second write from the same client is refused", func() {
			So(h.do(http.MethodPost, "/players", map[string]string{"name": "ana"}).Code, ShouldEqual, http.StatusCreated)
			w := h.do(http.MethodPost, "/players", map[string]string{"name": "ben"})
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Body.String(), ShouldContainSubstring, "rate_limited")
		})

		Convey("Reads are not limited", func() {
			for i := 0; i < 5; i++ {
				So(h.do(http.MethodGet, "/ladder", nil).Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}

// stubDeps fails writes with a fixed error.
type stubDeps struct {
	api.Dependencies
	err error
}

func (s stubDeps) RecordMatch(context.Context, ledger.RecordRequest, string) (model.Match, bool, error) {
	return model.Match{}, false, s.err
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given a service whose writes fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("%w: queue full", worker.ErrBusy), http.StatusTooManyRequests, "backpressure"},
			{&ledger.Error{Op: "RecordMatch", Kind: ledger.ErrConsistency}, http.StatusInternalServerError, "consistency_error"},
			{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		}
		for _, c := range cases {
			handler := api.NewServer(stubDeps{err: c.err}).Router(context.Background())
			req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(`{"player1_id":1,"player2_id":2,"score1":11,"score2":2}`))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, c.status)
			So(w.Body.String(), ShouldContainSubstring, c.code)
		}
	})
}
