package coupon

import (
	"os"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// CodeFilter is a bloom-filter prefilter over known coupon codes. It lets the
// validator reject unknown codes without a storage round trip. False positives
// fall through to the repository, so the filter is safe to consult first.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter creates a filter sized for the expected code count.
func NewCodeFilter(capacity uint, falsePositiveRate float64) *CodeFilter {
	return &CodeFilter{filter: bloom.NewWithEstimates(capacity, falsePositiveRate)}
}

// LoadCodeFilter reads a serialized bloom filter, as written by coupon-ingest.
func LoadCodeFilter(path string) (*CodeFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open filter file")
	}
	defer f.Close()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrap(err, "read filter")
	}
	return &CodeFilter{filter: filter}, nil
}

// Add registers a code, normalized. Called for every coupon minted at runtime.
func (cf *CodeFilter) Add(code string) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	cf.filter.AddString(Normalize(code))
}

// Test reports whether the code may be known. A false result is definitive.
func (cf *CodeFilter) Test(code string) bool {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	return cf.filter.TestString(Normalize(code))
}

// WriteTo serializes the filter to the given path.
func (cf *CodeFilter) WriteTo(path string) error {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create filter file")
	}
	if _, err := cf.filter.WriteTo(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write filter")
	}
	return f.Close()
}
