package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names the TLS ClientHello the research client presents to
// provider APIs.
type Profile string

const (
	ProfileGo      Profile = "go" // standard crypto/tls
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random"
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedALPN,
}

// ParseProfile maps a config value to a Profile. Empty means ProfileGo.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" || p == ProfileGo {
		return ProfileGo, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("context: unknown tls profile %q", s)
	}
	return p, nil
}

// Transport returns an http.Transport presenting profile p. ProfileGo keeps the
// standard library handshake; the others complete the handshake with uTLS.
// proxyFunc, when non-nil, becomes the transport's Proxy. RootCAs and
// InsecureSkipVerify set later on TLSClientConfig also apply to uTLS dials.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}
	if p == ProfileGo || p == "" {
		return transport, nil
	}

	helloID, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("context: unknown tls profile %q", p)
	}

	// net/http can't speak h2 over a custom TLS conn; stay on HTTP/1.1 and
	// keep h2 out of the hello so the server cannot select it.
	transport.ForceAttemptHTTP2 = false
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		spec, err := http1Spec(helloID)
		if err != nil {
			return nil, err
		}

		rawConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := &utls.Config{ServerName: host}
		if tc := transport.TLSClientConfig; tc != nil {
			cfg.RootCAs = tc.RootCAs
			cfg.InsecureSkipVerify = tc.InsecureSkipVerify
		}
		conn := utls.UClient(rawConn, cfg, utls.HelloCustom)
		if err := conn.ApplyPreset(spec); err != nil {
			_ = rawConn.Close()
			return nil, fmt.Errorf("context: apply %s hello: %w", p, err)
		}
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = rawConn.Close()
			return nil, fmt.Errorf("context: utls handshake with %s failed: %w", host, err)
		}
		return conn, nil
	}
	return transport, nil
}

// http1Spec builds a fresh ClientHelloSpec for id that offers only
// http/1.1 in ALPN. Application settings tied to h2 are dropped.
func http1Spec(id utls.ClientHelloID) (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	exts := spec.Extensions[:0]
	for _, ext := range spec.Extensions {
		switch e := ext.(type) {
		case *utls.ALPNExtension:
			e.AlpnProtocols = withoutH2(e.AlpnProtocols)
			if len(e.AlpnProtocols) == 0 {
				e.AlpnProtocols = []string{"http/1.1"}
			}
		case *utls.ApplicationSettingsExtension:
			if e.SupportedProtocols = withoutH2(e.SupportedProtocols); len(e.SupportedProtocols) == 0 {
				continue
			}
		case *utls.ApplicationSettingsExtensionNew:
			if e.SupportedProtocols = withoutH2(e.SupportedProtocols); len(e.SupportedProtocols) == 0 {
				continue
			}
		}
		exts = append(exts, ext)
	}
	spec.Extensions = exts
	return &spec, nil
}

func withoutH2(protos []string) []string {
	out := make([]string, 0, len(protos))
	for _, proto := range protos {
		if proto != "h2" {
			out = append(out, proto)
		}
	}
	return out
}
