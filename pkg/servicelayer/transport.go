package servicelayer

import (
	"net/http"

	"github.com/yndnr/servicelayer-go/internal/infra/tlsroots"
)

// NewHTTPClient builds the HTTP client used for cfg. Certificates are
// verified against the system roots plus cfg.CAFile unless
// cfg.InsecureSkipVerify is set.
//
// The client has no cookie jar, since the session cookie is set on each
// request, and no overall timeout, since calls are bounded by their context.
func NewHTTPClient(cfg Config) (*http.Client, error) {
	tlsCfg, err := tlsroots.ClientConfig(tlsroots.Options{
		CAFile:   cfg.CAFile,
		Insecure: cfg.Insecure(),
	})
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	return &http.Client{Transport: transport}, nil
}
