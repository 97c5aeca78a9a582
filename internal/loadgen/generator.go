package loadgen

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/rating"
)

const randomFloatDivisor = 1_000_000

// Rating bands, picked uniformly, then a value uniformly inside the band.
var bands = [...]struct{ lo, width float32 }{
	{3.0, 1.5}, // typical
	{4.0, 1.0}, // good
	{1.0, 2.0}, // poor
	{0.0, 1.0}, // terrible
	{0.0, 5.0}, // anything
}

func randomFloat() float32 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float32(n.Int64()) / randomFloatDivisor
}

func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateRating returns a rating within the accepted bounds.
func generateRating() float32 {
	b := bands[randomInt(len(bands))]
	r := b.lo + randomFloat()*b.width
	return min(max(r, rating.Min), rating.Max)
}

// generateVendor builds the payload for the i-th vendor of a run.
func generateVendor(run string, i int) model.CreateVendorPayload {
	n := strconv.Itoa(i)
	return model.CreateVendorPayload{
		Name:     "vendor-" + run + "-" + n,
		Services: []string{"catering", "cleaning"},
		Contact:  "Contact " + n,
		Email:    "vendor" + n + "@example.test",
		Address:  n + " Market Street",
	}
}

// generatePlans creates the vendor payloads and the ratings each will get.
func generatePlans(run string, cfg *Config) ([]model.CreateVendorPayload, []*plan) {
	payloads := make([]model.CreateVendorPayload, cfg.Vendors)
	plans := make([]*plan, cfg.Vendors)
	for i := range payloads {
		payloads[i] = generateVendor(run, i)
		p := &plan{
			Name:     payloads[i].Name,
			Ratings:  make([]float32, cfg.FeedbackPerVendor),
			Accepted: make([]bool, cfg.FeedbackPerVendor),
		}
		for j := range p.Ratings {
			p.Ratings[j] = generateRating()
		}
		plans[i] = p
	}
	return payloads, plans
}
