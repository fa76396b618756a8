package numista

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/types", want: EndpointSearch},
		{path: "/issuers", want: EndpointIssuers},
		{path: "/types/95235", want: EndpointType},
		{path: "/types/95235/issues", want: EndpointIssues},
		{path: "/types/95235/issues/12/prices", want: EndpointIssuesWithPrices},
		{path: "/types/abc", want: EndpointOther},
		{path: "/something/else", want: EndpointOther},
		{path: "", want: EndpointOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, EndpointName(tt.path))
		})
	}
}
