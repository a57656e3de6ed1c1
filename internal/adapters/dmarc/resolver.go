package dmarc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// fallbackServers are used when no servers are configured and resolv.conf is unreadable
var fallbackServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// Resolver looks up _dmarc TXT records with miekg/dns
type Resolver struct {
	servers []string
	client  *dns.Client
	logger  *zap.Logger
}

// NewResolver creates a DMARC resolver. An empty server list uses the system
// resolvers from /etc/resolv.conf.
func NewResolver(servers []string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if len(servers) == 0 {
		servers = systemServers()
	}
	return &Resolver{
		servers: servers,
		client:  &dns.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Servers returns the servers queried, in order
func (r *Resolver) Servers() []string {
	return r.servers
}

func systemServers() []string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return fallbackServers
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}

// LookupDMARC returns the DMARC record published for domain. Servers are tried in
// order until one gives an authoritative answer. NXDOMAIN and answers without TXT
// records yield core.ErrNoDMARCRecord.
func (r *Resolver) LookupDMARC(ctx context.Context, domain string) (string, error) {
	name := dns.Fqdn("_dmarc." + strings.TrimSuffix(domain, "."))

	var lastErr error
	for _, server := range r.servers {
		resp, err := r.exchange(ctx, name, server)
		if err != nil {
			lastErr = err
			r.logger.Debug("DMARC query failed", zap.String("server", server), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			record := pickRecord(resp.Answer)
			if record == "" {
				return "", core.ErrNoDMARCRecord
			}
			return record, nil
		case dns.RcodeNameError:
			return "", core.ErrNoDMARCRecord
		default:
			lastErr = fmt.Errorf("server %s answered %s", server, dns.RcodeToString[resp.Rcode])
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no DNS servers configured")
	}
	return "", fmt.Errorf("failed to look up %s: %w", name, lastErr)
}

func (r *Resolver) exchange(ctx context.Context, name, server string) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeTXT)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		tcp := &dns.Client{Net: "tcp", Timeout: r.client.Timeout}
		resp, _, err = tcp.ExchangeContext(ctx, m, server)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// pickRecord joins the strings of each TXT record and prefers the one that
// declares v=DMARC1. Without such a record every TXT value is concatenated.
func pickRecord(answer []dns.RR) string {
	var all []string
	for _, rr := range answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		value := strings.Join(txt.Txt, "")
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "v=dmarc1") {
			return value
		}
		all = append(all, value)
	}
	return strings.Join(all, " ")
}
