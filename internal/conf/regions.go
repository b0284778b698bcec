package conf

import (
	"regexp"
	"strings"
)

// regionCodePattern matches eBird region codes such as IL, IL-TA or US-NY-109.
var regionCodePattern = regexp.MustCompile(`^[A-Z]{2}(-[A-Z0-9]{1,3}){0,2}$`)

// ResolveRegion returns the region code for a preset name (case-insensitive)
// or for a raw eBird region code. ok is false when neither matches.
func (s *Settings) ResolveRegion(nameOrCode string) (code string, ok bool) {
	nameOrCode = strings.TrimSpace(nameOrCode)
	for _, r := range s.Regions {
		if strings.EqualFold(r.Name, nameOrCode) || strings.EqualFold(r.Code, nameOrCode) {
			return r.Code, true
		}
	}
	upper := strings.ToUpper(nameOrCode)
	if regionCodePattern.MatchString(upper) {
		return upper, true
	}
	return "", false
}
