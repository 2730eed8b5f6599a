package token

import "net/http"

// SDKHeader identifies the SDK on refresh and Account API requests.
const SDKHeader = "Kinde-SDK"

type sdkHeaderTransport struct {
	base  http.RoundTripper
	value string
}

func (t *sdkHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(SDKHeader, t.value)
	return t.base.RoundTrip(req)
}

// WithSDKHeader returns a copy of client whose requests carry
// "Kinde-SDK: Go/<version>".
func WithSDKHeader(client *http.Client, version string) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if existing, ok := base.(*sdkHeaderTransport); ok {
		base = existing.base
	}

	wrapped := *client
	wrapped.Transport = &sdkHeaderTransport{base: base, value: "Go/" + version}
	return &wrapped
}
