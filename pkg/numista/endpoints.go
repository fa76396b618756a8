package numista

import "regexp"

// Endpoint labels used for monthly quota accounting. These classify the
// request path only; they are never part of a cache key.
const (
	EndpointSearch           = "search"
	EndpointIssuers          = "issuers"
	EndpointType             = "type"
	EndpointIssues           = "issues"
	EndpointIssuesWithPrices = "issues_with_prices"
	EndpointOther            = "other"
)

var staticEndpoints = map[string]string{
	"/types":   EndpointSearch,
	"/issuers": EndpointIssuers,
}

var (
	reIssuePrices = regexp.MustCompile(`^/types/\d+/issues/\d+/prices$`)
	reIssues      = regexp.MustCompile(`^/types/\d+/issues$`)
	reTypeByID    = regexp.MustCompile(`^/types/\d+$`)
)

// EndpointName derives a stable usage-tracking label from a request path.
func EndpointName(path string) string {
	if name, ok := staticEndpoints[path]; ok {
		return name
	}
	switch {
	case reIssuePrices.MatchString(path):
		return EndpointIssuesWithPrices
	case reIssues.MatchString(path):
		return EndpointIssues
	case reTypeByID.MatchString(path):
		return EndpointType
	default:
		return EndpointOther
	}
}
