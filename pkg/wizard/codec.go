package wizard

import (
	"errors"
	"net/url"
	"strings"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
)

// Query parameter names of the external wizard representation.
const (
	ParamStep         = "step"
	ParamProjectID    = "projectId"
	ParamPlanType     = "planType"
	ParamBillingCycle = "billingCycle"
)

// Encode renders the externally visible fields of a snapshot.
// Empty fields are omitted.
func Encode(s Snapshot) url.Values {
	v := url.Values{}
	if s.Step != "" {
		v.Set(ParamStep, string(s.Step))
	}
	if s.ProjectID != "" {
		v.Set(ParamProjectID, s.ProjectID)
	}
	if token := s.PlanToken(); token != "" {
		v.Set(ParamPlanType, token)
	}
	if s.BillingCycle.Valid() {
		v.Set(ParamBillingCycle, s.BillingCycle.Token())
	}
	return v
}

// EncodeString renders the snapshot as a query string.
func EncodeString(s Snapshot) string {
	return Encode(s).Encode()
}

// Decode parses the external representation back into a Hint.
func Decode(v url.Values) (Hint, error) {
	step, err := ParseStep(strings.TrimSpace(v.Get(ParamStep)))
	if err != nil {
		return Hint{}, err
	}

	hint := Hint{
		Step:      step,
		ProjectID: strings.TrimSpace(v.Get(ParamProjectID)),
		PlanType:  strings.ToLower(strings.TrimSpace(v.Get(ParamPlanType))),
	}

	if raw := strings.TrimSpace(v.Get(ParamBillingCycle)); raw != "" {
		cycle, err := catalog.ParseBillingCycle(raw)
		if err != nil {
			return Hint{}, err
		}
		hint.BillingCycle = cycle
	}

	return hint, nil
}

// DecodeString parses a raw query string.
func DecodeString(raw string) (Hint, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Hint{}, errors.Join(ErrUnknownStep, err)
	}
	return Decode(v)
}
