package kubernetes

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"k8s.io/client-go/rest"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/output"
)

// localProxy forwards 127.0.0.1 traffic to the API server with the
// kubeconfig's credentials.
type localProxy struct {
	url    string
	server *http.Server
}

func (p *localProxy) URL() string { return p.url }

func (p *localProxy) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.server.Shutdown(ctx)
}

// OpenProxy starts a local control-plane proxy on an ephemeral port.
func (c *Cluster) OpenProxy(ctx context.Context) (cluster.Proxy, error) {
	if c.RestConfig == nil {
		return nil, oerrors.NewConnectivityError("no REST config to proxy", nil, "")
	}
	target, err := url.Parse(c.RestConfig.Host)
	if err != nil {
		return nil, oerrors.NewConnectivityError("invalid API server address "+c.RestConfig.Host, nil, "")
	}
	transport, err := rest.TransportFor(c.RestConfig)
	if err != nil {
		return nil, oerrors.NewSubstrateError("building proxy transport", nil, err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, oerrors.NewSubstrateError("opening proxy listener", nil, err)
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.Transport = transport
	p := &localProxy{
		url:    "http://" + ln.Addr().String(),
		server: &http.Server{Handler: rp, ReadHeaderTimeout: 10 * time.Second},
	}
	go func() {
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			output.Warn("control-plane proxy stopped", "err", err)
		}
	}()
	output.Debug("opened control-plane proxy", "url", p.url, "target", target.String())
	return p, nil
}
