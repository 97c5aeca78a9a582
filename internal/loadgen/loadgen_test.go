package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vendorhub/internal/adapters/http/api"
	service "github.com/okian/vendorhub/internal/app"
	"github.com/okian/vendorhub/internal/domain/rating"
	"github.com/okian/vendorhub/pkg/logger"
)

func newTestServer(ctx context.Context) (*httptest.Server, func()) {
	svc := service.New(service.WithLogger(logger.Nop()))
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	ts := httptest.NewServer(mux)
	return ts, func() {
		ts.Close()
		svc.Stop()
	}
}

func TestGenerator(t *testing.T) {
	Convey("Given generated plans", t, func() {
		cfg := &Config{Vendors: 5, FeedbackPerVendor: 50}
		payloads, plans := generatePlans("run1", cfg)

		Convey("Then every vendor has a distinct, complete payload", func() {
			So(payloads, ShouldHaveLength, 5)
			seen := map[string]bool{}
			for _, p := range payloads {
				So(p.Name, ShouldNotBeEmpty)
				So(p.Contact, ShouldNotBeEmpty)
				So(p.Email, ShouldNotBeEmpty)
				So(seen[p.Name], ShouldBeFalse)
				seen[p.Name] = true
			}
		})

		Convey("Then every rating is within bounds", func() {
			for _, p := range plans {
				So(p.Ratings, ShouldHaveLength, 50)
				So(p.Accepted, ShouldHaveLength, 50)
				for _, r := range p.Ratings {
					So(rating.InRange(r), ShouldBeTrue)
				}
			}
		})
	})
}

func TestConfigNormalize(t *testing.T) {
	Convey("Given an empty config", t, func() {
		cfg := &Config{FeedbackPerVendor: -1}
		cfg.Normalize()

		Convey("Then defaults are applied", func() {
			So(cfg.BaseURL, ShouldEqual, DefaultBaseURL)
			So(cfg.Vendors, ShouldEqual, DefaultVendors)
			So(cfg.FeedbackPerVendor, ShouldEqual, DefaultFeedbackPerVendor)
			So(cfg.Workers, ShouldEqual, DefaultWorkers)
		})
	})
}

func TestAcceptedRatings(t *testing.T) {
	Convey("Given a plan with some ratings rejected", t, func() {
		p := &plan{Ratings: []float32{1, 2, 3, 4}, Accepted: []bool{true, false, true, false}}

		Convey("Then only acknowledged ratings count", func() {
			So(p.accepted(), ShouldResemble, []float32{1, 3})
		})
	})

	Convey("Given two averages", t, func() {
		Convey("Then small summation differences are tolerated", func() {
			So(compareAverage(4.5, 4.5+1e-9), ShouldBeNil)
		})
		Convey("Then real differences are reported", func() {
			So(compareAverage(4.5, 4.4), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ts, shutdown := newTestServer(ctx)
		defer shutdown()

		report := filepath.Join(t.TempDir(), "out", "report.json")
		cfg := &Config{
			BaseURL:           ts.URL,
			Vendors:           8,
			FeedbackPerVendor: 6,
			Workers:           4,
			Timeout:           5 * time.Second,
			OutputFile:        report,
		}

		Convey("When a load run completes", func() {
			stats, err := Run(ctx, cfg, logger.Nop())

			Convey("Then every write succeeds and every average matches", func() {
				So(err, ShouldBeNil)
				So(stats.VendorsCreated, ShouldEqual, 8)
				So(stats.FeedbackSubmitted, ShouldEqual, 48)
				So(stats.FeedbackSuccessful, ShouldEqual, 48)
				So(stats.AveragesVerified, ShouldEqual, 8)
				So(stats.AveragesMismatched, ShouldEqual, 0)
			})

			Convey("Then the report lists every vendor", func() {
				data, err := os.ReadFile(report)
				So(err, ShouldBeNil)

				var doc struct {
					Stats   Stats  `json:"stats"`
					Vendors []plan `json:"vendors"`
				}
				So(json.Unmarshal(data, &doc), ShouldBeNil)
				So(doc.Vendors, ShouldHaveLength, 8)
				So(doc.Stats.VendorsCreated, ShouldEqual, 8)
			})
		})

		Convey("When vendors get no feedback", func() {
			cfg.FeedbackPerVendor = 0
			cfg.OutputFile = ""
			stats, err := Run(ctx, cfg, logger.Nop())

			Convey("Then the unrated vendors answer 404 and verify", func() {
				So(err, ShouldBeNil)
				So(stats.AveragesVerified, ShouldEqual, 8)
			})
		})
	})

	Convey("Given a service that reports wrong averages", t, func() {
		ctx := context.Background()
		ts, shutdown := newTestServer(ctx)
		defer shutdown()

		client := newHTTPClient(ts.URL, time.Second)
		p := &plan{Ratings: []float32{5}, Accepted: []bool{true}}

		Convey("When the vendor does not exist", func() {
			p.VendorID = 999
			err := checkAverage(ctx, client, p)

			Convey("Then verification fails with the status", func() {
				var se *StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given no service listening", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		Convey("Then the health check fails the run", func() {
			_, err := Run(context.Background(), &Config{BaseURL: url, Vendors: 1, Timeout: time.Second}, logger.Nop())
			So(err, ShouldNotBeNil)
		})
	})
}
