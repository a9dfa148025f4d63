package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it registers under the rally namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.matchesRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				found := false
				for _, f := range families {
					if f.GetName() == "rally_ladder_matches_recorded_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("club"),
				WithSubsystem("tt"),
				WithMetricPrefix("v2"),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and constant labels follow the options", func() {
				manager.playersTotal.Set(4)
				So(testutil.ToFloat64(manager.playersTotal), ShouldEqual, float64(4))
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "club_tt_v2_"), ShouldBeTrue)
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ledger metrics", func() {
			before := testutil.ToFloat64(globalManager.matchesRecorded)
			RecordMatchRecorded()
			RecordMatchRecorded()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.matchesRecorded), ShouldEqual, before+2)
			})
		})

		Convey("When recording replays", func() {
			before := testutil.ToFloat64(globalManager.replays.WithLabelValues("delete"))
			RecordReplay("delete", 12.5, 40)

			Convey("Then the trigger is counted", func() {
				So(testutil.ToFloat64(globalManager.replays.WithLabelValues("delete")), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdatePlayersTotal(7)
			UpdateMatchesTotal(21)
			UpdateCurrentSeason(3)
			UpdateWriterQueueSize(2)
			UpdateWriterQueueCapacity(64)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.playersTotal), ShouldEqual, float64(7))
				So(testutil.ToFloat64(globalManager.matchesTotal), ShouldEqual, float64(21))
				So(testutil.ToFloat64(globalManager.currentSeason), ShouldEqual, float64(3))
				So(testutil.ToFloat64(globalManager.writerQueueCapacity), ShouldEqual, float64(64))
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordMatchDeleted()
				RecordPlayerRegistered()
				RecordPlayerRemoved()
				RecordConsistencyError()
				RecordLedgerError("record_match", "validation")
				RecordWriterRejected()
				RecordWriterCommand("record_match", "ok", 1.2)
				RecordPrediction()
				RecordIdempotentReplay()
				RecordStoreTx("read", 0.4)
				RecordHTTPRequest("ladder", "GET", "200")
				RecordHTTPRequestDuration("ladder", "GET", "200", 3)
				RecordRateLimited()
				RecordErrorByComponent("ledger", "consistency")
				RecordErrorByType("not_found", "medium")
				RecordErrorByEndpoint("matches", "DELETE", "not_found")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("Then GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
