package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vendorhub/internal/adapters/http/api"
	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/rating"
	"github.com/okian/vendorhub/internal/domain/types"
)

// mockDependencies keeps records in maps and lets tests inject failures.
type mockDependencies struct {
	mu       sync.Mutex
	nextID   uint64
	vendors  map[uint64]model.Vendor
	claimed  map[string]bool
	released []string
	failWith error
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{vendors: map[uint64]model.Vendor{}, claimed: map[string]bool{}}
}

func (m *mockDependencies) CreateVendor(_ context.Context, p model.CreateVendorPayload) (model.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return model.Vendor{}, m.failWith
	}
	if p.Name == "" {
		return model.Vendor{}, model.InvalidPayload(model.MsgMissingFields)
	}
	m.nextID++
	v := model.Vendor{ID: m.nextID, Name: p.Name, Contact: p.Contact, Email: p.Email, Ratings: []float32{}}
	m.vendors[v.ID] = v
	return v, nil
}

func (m *mockDependencies) GetVendorByID(_ context.Context, id uint64) (model.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return model.Vendor{}, model.NotFound(model.MsgVendorNotFound)
	}
	return v, nil
}

func (m *mockDependencies) ListAllVendors(context.Context) ([]model.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.vendors) == 0 {
		return nil, model.NotFound(model.MsgNoVendors)
	}
	out := make([]model.Vendor, 0, len(m.vendors))
	for id := uint64(1); id <= m.nextID; id++ {
		if v, ok := m.vendors[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockDependencies) GetServicesByVendorID(context.Context, uint64) ([]model.Service, error) {
	return nil, model.NotFound(model.MsgNoServices)
}

func (m *mockDependencies) GetContractsByVendorID(_ context.Context, vendorID uint64) ([]model.Contract, error) {
	return []model.Contract{{ID: 9, VendorID: vendorID, IsActive: true}}, nil
}

func (m *mockDependencies) GetFeedbackByVendorID(context.Context, uint64) ([]model.Feedback, error) {
	return nil, model.NotFound(model.MsgNoFeedback)
}

func (m *mockDependencies) CalculateAverageRating(_ context.Context, vendorID uint64) (float64, error) {
	if vendorID != 1 {
		return 0, model.NotFound(model.MsgVendorNotFound)
	}
	return 4.5, nil
}

func (m *mockDependencies) RatingSummary(context.Context, uint64) (rating.Summary, error) {
	return rating.Summary{Count: 2, Average: 4.5, Lowest: 4, Highest: 5}, nil
}

func (m *mockDependencies) CreateService(_ context.Context, p model.CreateServicePayload) (model.Service, error) {
	if p.Price == 0 {
		return model.Service{}, model.InvalidPayload(model.MsgMissingFields)
	}
	return model.Service{ID: 2, VendorID: p.VendorID, Name: p.Name, Price: p.Price, IsAvailable: true}, nil
}

func (m *mockDependencies) CreateContract(_ context.Context, p model.CreateContractPayload) (model.Contract, error) {
	return model.Contract{ID: 3, VendorID: p.VendorID, IsActive: true}, nil
}

func (m *mockDependencies) CreateFeedback(_ context.Context, p model.CreateFeedbackPayload) (model.Feedback, error) {
	if p.Rating > 5 {
		return model.Feedback{}, model.InvalidPayload(model.MsgInvalidFeedback)
	}
	if p.VendorID == 99 {
		return model.Feedback{}, model.NotFound(model.MsgVendorNotFound)
	}
	return model.Feedback{ID: 4, VendorID: p.VendorID, UserID: p.UserID, Rating: p.Rating}, nil
}

func (m *mockDependencies) ClaimIdempotencyKey(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] {
		return false
	}
	m.claimed[key] = true
	return true
}

func (m *mockDependencies) ReleaseIdempotencyKey(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, key)
	m.released = append(m.released, key)
}

func (m *mockDependencies) Stats(context.Context) (types.Stats, error) {
	return types.Stats{LastID: m.nextID, QueueCapacity: 16}, nil
}

func (m *mockDependencies) Backup(_ context.Context, w io.Writer) (int64, error) {
	m.mu.Lock()
	fail := m.failWith
	m.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	n, err := io.WriteString(w, "snapshot")
	return int64(n), err
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"queue_capacity":16`)
		})

		Convey("Then a backup is streamed as zstd", func() {
			w := do(mux, http.MethodGet, "/backup", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/zstd")
			So(w.Body.String(), ShouldEqual, "snapshot")
		})

		Convey("Then a backup that fails before streaming is a JSON error", func() {
			deps.failWith = errors.New("disk gone")
			w := do(mux, http.MethodGet, "/backup", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["kind"], ShouldEqual, "Error")
		})

		Convey("Then unknown methods are rejected", func() {
			w := do(mux, http.MethodDelete, "/vendors/1", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestVendorsHandler(t *testing.T) {
	Convey("Given the vendor routes", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When the store is empty", func() {
			w := do(mux, http.MethodGet, "/vendors", "")

			Convey("Then listing is a NotFound failure", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w), ShouldResemble, map[string]string{"kind": "NotFound", "message": "No vendors found"})
			})
		})

		Convey("When a vendor is created", func() {
			w := do(mux, http.MethodPost, "/vendors", `{"name":"Acme","contact":"Jane","email":"j@acme.test"}`)

			Convey("Then it is returned with 201", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var v model.Vendor
				So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
				So(v.ID, ShouldEqual, uint64(1))
				So(v.Name, ShouldEqual, "Acme")
			})

			Convey("Then it can be fetched and listed", func() {
				So(do(mux, http.MethodGet, "/vendors/1", "").Code, ShouldEqual, http.StatusOK)
				w := do(mux, http.MethodGet, "/vendors", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var vs []model.Vendor
				So(json.Unmarshal(w.Body.Bytes(), &vs), ShouldBeNil)
				So(len(vs), ShouldEqual, 1)
			})
		})

		Convey("When the payload is invalid", func() {
			w := do(mux, http.MethodPost, "/vendors", `{"contact":"Jane"}`)

			Convey("Then the domain failure maps to 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["kind"], ShouldEqual, "InvalidPayload")
				So(decodeError(w)["message"], ShouldEqual, "Missing required fields")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/vendors", `{"name":`)

			Convey("Then it is rejected with 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["kind"], ShouldEqual, "InvalidPayload")
			})
		})

		Convey("When the id is not a number", func() {
			w := do(mux, http.MethodGet, "/vendors/abc", "")

			Convey("Then it is rejected with 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a vendor is missing", func() {
			w := do(mux, http.MethodGet, "/vendors/42", "")

			Convey("Then it maps to 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["message"], ShouldEqual, "Vendor not found")
			})
		})

		Convey("When listing per-vendor records", func() {
			So(do(mux, http.MethodGet, "/vendors/1/services", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/vendors/1/feedback", "").Code, ShouldEqual, http.StatusNotFound)

			w := do(mux, http.MethodGet, "/vendors/7/contracts", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"vendor_id":7`)
		})

		Convey("When reading ratings", func() {
			w := do(mux, http.MethodGet, "/vendors/1/rating", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"average":4.5`)

			So(do(mux, http.MethodGet, "/vendors/2/rating", "").Code, ShouldEqual, http.StatusNotFound)

			w = do(mux, http.MethodGet, "/vendors/1/rating/summary", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"count":2`)
		})

		Convey("When the dependency fails unexpectedly", func() {
			deps.failWith = errors.New("disk on fire")
			w := do(mux, http.MethodPost, "/vendors", `{"name":"Acme","contact":"c","email":"e"}`)

			Convey("Then a 500 hides the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["kind"], ShouldEqual, "Error")
				So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			})
		})

		Convey("When the write queue is full", func() {
			deps.failWith = model.ErrBackpressure
			w := do(mux, http.MethodPost, "/vendors", `{"name":"Acme","contact":"c","email":"e"}`)

			Convey("Then the caller is told to retry", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})
	})
}

func TestRecordsHandler(t *testing.T) {
	Convey("Given the record routes", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Services, contracts and feedback are created with 201", func() {
			So(do(mux, http.MethodPost, "/services", `{"vendor_id":1,"name":"n","description":"d","price":10}`).Code, ShouldEqual, http.StatusCreated)
			So(do(mux, http.MethodPost, "/contracts", `{"vendor_id":1,"department_id":2,"start_date":3,"end_date":4}`).Code, ShouldEqual, http.StatusCreated)

			w := do(mux, http.MethodPost, "/feedback", `{"vendor_id":1,"user_id":2,"rating":4.5}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var fb model.Feedback
			So(json.Unmarshal(w.Body.Bytes(), &fb), ShouldBeNil)
			So(fb.Rating, ShouldEqual, float32(4.5))
		})

		Convey("Domain failures keep their kind", func() {
			w := do(mux, http.MethodPost, "/feedback", `{"vendor_id":1,"user_id":2,"rating":6.0}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w), ShouldResemble, map[string]string{"kind": "InvalidPayload", "message": "Invalid feedback data"})

			w = do(mux, http.MethodPost, "/feedback", `{"vendor_id":99,"user_id":2,"rating":3}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)

			w = do(mux, http.MethodPost, "/services", `{"vendor_id":1,"name":"n","description":"d"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Type mismatches are rejected", func() {
			w := do(mux, http.MethodPost, "/feedback", `{"vendor_id":"one"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestIdempotencyMiddleware(t *testing.T) {
	Convey("Given requests carrying an Idempotency-Key", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		body := `{"name":"Acme","contact":"c","email":"e"}`

		Convey("When the same key is sent twice", func() {
			first := do(mux, http.MethodPost, "/vendors", body, api.HeaderIdempotencyKey, "k1")
			second := do(mux, http.MethodPost, "/vendors", body, api.HeaderIdempotencyKey, "k1")

			Convey("Then only the first is applied", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(len(deps.vendors), ShouldEqual, 1)
			})
		})

		Convey("When the keyed request fails", func() {
			w := do(mux, http.MethodPost, "/vendors", `{"contact":"c"}`, api.HeaderIdempotencyKey, "k2")

			Convey("Then the key is released for a retry", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.released, ShouldContain, "k2")
				So(do(mux, http.MethodPost, "/vendors", body, api.HeaderIdempotencyKey, "k2").Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When the keyed write was queued but not confirmed", func() {
			deps.failWith = fmt.Errorf("%w: %w", model.ErrUnconfirmed, context.DeadlineExceeded)
			first := do(mux, http.MethodPost, "/vendors", body, api.HeaderIdempotencyKey, "k3")
			deps.failWith = nil
			retry := do(mux, http.MethodPost, "/vendors", body, api.HeaderIdempotencyKey, "k3")

			Convey("Then the key is kept so a retry cannot apply it twice", func() {
				So(first.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(first)["kind"], ShouldEqual, "Error")
				So(deps.released, ShouldNotContain, "k3")
				So(retry.Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	Convey("Given a server limited to a burst of one write", t, func() {
		mux := newMux(newMockDependencies(), api.WithRateLimit(0.001, 1))
		body := `{"name":"Acme","contact":"c","email":"e"}`

		Convey("Then the second write is throttled but reads are not", func() {
			So(do(mux, http.MethodPost, "/vendors", body).Code, ShouldEqual, http.StatusCreated)
			w := do(mux, http.MethodPost, "/vendors", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
			So(do(mux, http.MethodGet, "/vendors", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		Convey("Then a caller id is echoed", func() {
			w := do(h, http.MethodGet, "/", "", api.HeaderRequestID, "abc")
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "abc")
		})

		Convey("Then a missing id is generated", func() {
			w := do(h, http.MethodGet, "/", "")
			So(len(w.Header().Get(api.HeaderRequestID)), ShouldEqual, 36)
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then a kind without cause still matches", func() {
			err := api.NewKind("api.op", api.ErrDuplicate)
			So(errors.Is(err, api.ErrDuplicate), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: duplicate idempotency key")
		})
	})
}
