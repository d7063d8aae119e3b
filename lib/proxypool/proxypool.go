package proxypool

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"certifyhub-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	fakeua "github.com/EDDYCJY/fake-useragent"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/proxypool")

// free aggregator pages that publish the same proxy table markup
var listSources = []string{
	"https://www.sslproxies.org/",
	"https://free-proxy-list.net/",
	"https://www.us-proxy.org/",
}

// Proxy is a single https-capable forward proxy.
type Proxy struct {
	Host string
	Port string
}

func (p Proxy) Addr() string {
	return net.JoinHostPort(p.Host, p.Port)
}

// Pool scrapes free proxy aggregators and caches the result. Picks are
// random, and a fetch failure just yields no proxy since sessions work
// fine without one.
type Pool struct {
	client *resty.Client
	ttl    time.Duration

	mu        sync.Mutex
	proxies   []Proxy
	fetchedAt time.Time
}

func NewPool() *Pool {
	client := resty.New()
	client.SetTransport(cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport))
	client.SetTimeout(time.Second * 15)
	client.SetHeader("User-Agent", fakeua.Random())
	telemetry.InstrumentResty(client, "lib/proxypool")

	return &Pool{
		client: client,
		ttl:    time.Minute * 10,
	}
}

// Pick returns a random proxy from the pool, refreshing it first when
// the cached list has gone stale.
func (p *Pool) Pick(ctx context.Context) (Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.fetchedAt) > p.ttl {
		p.refresh(ctx)
	}
	if len(p.proxies) == 0 {
		return Proxy{}, false
	}
	return p.proxies[rand.Intn(len(p.proxies))], true
}

// Size reports how many proxies are currently cached.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Refresh fetches every source immediately, regardless of cache age.
func (p *Pool) Refresh(ctx context.Context) []Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refresh(ctx)
	return append([]Proxy{}, p.proxies...)
}

func (p *Pool) refresh(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "refresh")
	defer span.End()

	seen := map[string]struct{}{}
	var proxies []Proxy

	for _, source := range listSources {
		res, err := p.client.R().
			SetContext(ctx).
			Get(source)
		if err != nil {
			slog.Warn("failed to fetch proxy source", "source", source, "err", err)
			span.RecordError(err)
			continue
		}
		if res.IsError() {
			slog.Warn("proxy source returned an error status",
				"source", source,
				"status", res.StatusCode())
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
		if err != nil {
			span.RecordError(err)
			continue
		}

		found := 0
		for _, proxy := range ParseProxyTable(doc) {
			if _, ok := seen[proxy.Addr()]; ok {
				continue
			}
			seen[proxy.Addr()] = struct{}{}
			proxies = append(proxies, proxy)
			found++
		}
		slog.Debug("scraped proxy source", "source", source, "found", found)
	}

	if len(proxies) == 0 {
		span.SetStatus(codes.Error, "no proxies found")
		slog.Warn("proxy refresh yielded nothing, keeping previous list",
			"previous", len(p.proxies))
		return
	}

	p.proxies = proxies
	p.fetchedAt = time.Now()
	slog.Info("refreshed proxy pool", "count", len(proxies))
}

// ParseProxyTable extracts https-capable entries from the shared
// aggregator table layout. Columns are ip, port, code, country,
// anonymity, google, https, last checked.
func ParseProxyTable(doc *goquery.Document) []Proxy {
	var proxies []Proxy

	doc.Find("table#proxylisttable tbody tr, table.table-striped tbody tr").
		Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 7 {
				return
			}

			https := strings.TrimSpace(cells.Eq(6).Text())
			if !strings.EqualFold(https, "yes") {
				return
			}

			host := strings.TrimSpace(cells.Eq(0).Text())
			port := strings.TrimSpace(cells.Eq(1).Text())
			if net.ParseIP(host) == nil || port == "" {
				return
			}

			proxies = append(proxies, Proxy{Host: host, Port: port})
		})

	return proxies
}

// String renders the pool state for log and table output.
func (p *Pool) String() string {
	return fmt.Sprintf("proxypool(%d cached)", p.Size())
}
