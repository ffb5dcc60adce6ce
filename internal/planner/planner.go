// Package planner turns a query request into an ordered list of provider
// candidates. Planning is pure: it reads the catalog and the request, never
// the network, so the pipeline can re-plan cheaply and tests can assert on
// exact orderings.
package planner

import (
	"fmt"
	"sort"

	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

// SpeedPriorityHigh selects latency ordering. Any other value (including
// empty) selects price ordering.
const SpeedPriorityHigh = "high"

// Request carries the planner's slice of the query request.
type Request struct {
	LogicalModel  string
	Provider      providers.ID // optional filter; "" means no filter
	SpeedPriority string
	MaxGenLen     *int

	// SAASMode requires each candidate to support per-request credentials
	// and the request to carry a matching credential variant.
	SAASMode    bool
	Credentials providers.CredentialList
}

// Options are deployment-level planning knobs.
type Options struct {
	// FilterByMaxGenLen drops candidates whose configured maxGenLen is
	// below the request's. Off by default: a too-small candidate fails at
	// dispatch and falls through instead.
	FilterByMaxGenLen bool
}

// NoSuchModelError reports a logical model absent from the catalog.
type NoSuchModelError struct {
	Model string
}

func (e *NoSuchModelError) Error() string {
	return fmt.Sprintf("no such model: %s", e.Model)
}

// NoEligibleProviderError reports that catalog entries exist but every one
// was filtered out.
type NoEligibleProviderError struct {
	Model string
}

func (e *NoEligibleProviderError) Error() string {
	return fmt.Sprintf("no eligible provider for model: %s", e.Model)
}

// Plan resolves the ordered candidate list for a request.
//
// Entries are filtered by the optional provider constraint and, in SAAS
// mode, by credential availability; survivors are stable-sorted by speed
// rank when speedPriority is high, otherwise by average price. Ties keep
// catalog insertion order.
func Plan(req Request, catalog *models.Catalog, opts Options) ([]models.ProviderEntry, error) {
	all := catalog.Lookup(req.LogicalModel)
	if len(all) == 0 {
		return nil, &NoSuchModelError{Model: req.LogicalModel}
	}

	candidates := make([]models.ProviderEntry, 0, len(all))
	for _, e := range all {
		if req.Provider != "" && e.Provider != req.Provider {
			continue
		}
		if req.SAASMode {
			if !e.SupportsSAAS || !req.Credentials.Has(e.Provider) {
				continue
			}
		}
		if opts.FilterByMaxGenLen && req.MaxGenLen != nil && e.MaxGenLen < *req.MaxGenLen {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil, &NoEligibleProviderError{Model: req.LogicalModel}
	}

	if req.SpeedPriority == SpeedPriorityHigh {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].SpeedRank < candidates[j].SpeedRank
		})
	} else {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].AvgPrice() < candidates[j].AvgPrice()
		})
	}
	return candidates, nil
}
