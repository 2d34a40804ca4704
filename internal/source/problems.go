package source

import (
	"errors"
	"fmt"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// Problems collects the malformed regions of one source so a parser can
// report all of them at once.
type Problems struct {
	SourceID string
	errs     []error
}

// Add records a malformed region.
func (p *Problems) Add(region, reason string, err error) {
	p.errs = append(p.errs, &domain.SourceParseError{
		SourceID: p.SourceID,
		Region:   region,
		Reason:   reason,
		Err:      err,
	})
}

// Addf records a malformed region with a formatted reason.
func (p *Problems) Addf(region, format string, args ...any) {
	p.Add(region, fmt.Sprintf(format, args...), nil)
}

// Len returns the number of recorded problems.
func (p *Problems) Len() int { return len(p.errs) }

// Err joins the recorded problems, or returns nil when there are none.
func (p *Problems) Err() error {
	return errors.Join(p.errs...)
}
