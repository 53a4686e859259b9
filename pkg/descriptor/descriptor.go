// Package descriptor defines the request descriptor that identifies a network
// resource to fetch.
package descriptor

import (
	"net/http"
	"net/url"
	"strings"
)

// Descriptor describes a single HTTP request.
//
// Descriptors are handled by pointer and must not be mutated after they have
// been passed to a request. Two descriptors are "the same configuration" only
// when they are the same pointer; equal field values do not count.
type Descriptor struct {
	// URL is the request URL, possibly already carrying a query string.
	URL string

	// Method is the HTTP method (default GET).
	Method string

	// Params are extra query parameters appended to URL.
	Params url.Values

	// Header holds additional request headers.
	Header http.Header

	// Body is the request body for non-GET requests.
	Body []byte
}

// URL returns the bare-URL form of a descriptor (a GET without params).
func URL(rawURL string) *Descriptor {
	return &Descriptor{
		URL:    rawURL,
		Method: http.MethodGet,
	}
}

// EffectiveMethod returns the method to use, defaulting to GET.
func (d *Descriptor) EffectiveMethod() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(d.Method)
}

// BuildURL returns URL with Params appended in canonical (sorted) form.
//
// Example:
//
//	{URL: "https://x/items", Params: {"b": ["2"], "a": ["1"]}}
//	-> https://x/items?a=1&b=2
func (d *Descriptor) BuildURL() string {
	if len(d.Params) == 0 {
		return d.URL
	}

	encoded := d.Params.Encode()
	if encoded == "" {
		return d.URL
	}

	base := d.URL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}

	switch {
	case !strings.Contains(base, "?"):
		return base + "?" + encoded
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		return base + encoded
	default:
		return base + "&" + encoded
	}
}
