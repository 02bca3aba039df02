// Package security detects evaluation context attributes that look like
// personal data before they are sent to Flipt.
package security

import (
	"sort"
	"strings"
	"sync"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/types"
)

// PII attribute name fragments, matched case-insensitively with separators removed.
var piiPatterns = []string{
	"email",
	"phone",
	"mobile",
	"ssn",
	"social_security",
	"credit_card",
	"card_number",
	"cvv",
	"password",
	"secret",
	"token",
	"api_key",
	"address",
	"street",
	"zip_code",
	"postal_code",
	"date_of_birth",
	"birth_date",
	"passport",
	"driver_license",
	"national_id",
	"bank_account",
	"iban",
}

// IsPotentialPIIField checks if an attribute name potentially holds PII.
func IsPotentialPIIField(name string) bool {
	normalized := normalize(name)
	for _, pattern := range piiPatterns {
		if strings.Contains(normalized, normalize(pattern)) {
			return true
		}
	}
	return false
}

// DetectPotentialPII returns the sorted names of non-empty attributes that look like PII.
func DetectPotentialPII(evalCtx map[string]string) []string {
	var fields []string
	for name, value := range evalCtx {
		if value != "" && IsPotentialPIIField(name) {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// StripPII returns a copy of evalCtx without the attributes DetectPotentialPII reports.
func StripPII(evalCtx map[string]string) map[string]string {
	stripped := make(map[string]string, len(evalCtx))
	for name, value := range evalCtx {
		if value != "" && IsPotentialPIIField(name) {
			continue
		}
		stripped[name] = value
	}
	return stripped
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}

// PIIGuard checks evaluation contexts. In strict mode contexts with PII are
// rejected; otherwise each offending attribute name is logged once.
type PIIGuard struct {
	strict   bool
	logger   types.Logger
	mu       sync.Mutex
	reported map[string]struct{}
}

// NewPIIGuard creates a guard. A nil logger discards warnings.
func NewPIIGuard(strict bool, logger types.Logger) *PIIGuard {
	return &PIIGuard{
		strict:   strict,
		logger:   types.OrNull(logger),
		reported: make(map[string]struct{}),
	}
}

// Check returns an error in strict mode when evalCtx holds potential PII.
func (g *PIIGuard) Check(evalCtx map[string]string) error {
	fields := DetectPotentialPII(evalCtx)
	if len(fields) == 0 {
		return nil
	}

	if g.strict {
		return errors.NewError(errors.ErrSecurityPIIDetected,
			"evaluation context contains potential PII: "+strings.Join(fields, ", "))
	}

	g.mu.Lock()
	var fresh []string
	for _, f := range fields {
		if _, ok := g.reported[f]; !ok {
			g.reported[f] = struct{}{}
			fresh = append(fresh, f)
		}
	}
	g.mu.Unlock()

	if len(fresh) > 0 {
		g.logger.Warn("Potential PII in evaluation context", "fields", strings.Join(fresh, ","))
	}
	return nil
}
