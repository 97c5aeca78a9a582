package loadgen

// Defaults applied by Normalize.
const (
	DefaultBaseURL           = "http://localhost:9080"
	DefaultVendors           = 100
	DefaultFeedbackPerVendor = 20
	DefaultWorkers           = 16
)

const (
	// averageTolerance absorbs summation order differences between the
	// client's expectation and the commit order on the server.
	averageTolerance = 1e-6

	percentageMultiplier = 100
	filePermission       = 0o600
	directoryPermission  = 0o750
)

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Vendors <= 0 {
		c.Vendors = DefaultVendors
	}
	if c.FeedbackPerVendor < 0 {
		c.FeedbackPerVendor = DefaultFeedbackPerVendor
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
}
