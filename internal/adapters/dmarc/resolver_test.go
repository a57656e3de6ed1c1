package dmarc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func txt(name string, parts ...string) dns.RR {
	return &dns.TXT{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
		Txt: parts,
	}
}

// startServer runs a local DNS server answering from fixed zone data
func startServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		name := req.Question[0].Name
		switch name {
		case "_dmarc.example.com.":
			m.Answer = append(m.Answer, txt(name, "v=DMARC1; ", "p=reject; rua=mailto:d@example.com"))
		case "_dmarc.multi.example.":
			m.Answer = append(m.Answer, txt(name, "google-site-verification=abc"), txt(name, "v=DMARC1; p=none"))
		case "_dmarc.nopolicy.example.":
			m.Answer = append(m.Answer, txt(name, "some text"))
		case "_dmarc.empty.example.":
		case "_dmarc.broken.example.":
			m.SetRcode(req, dns.RcodeServerFailure)
		default:
			m.SetRcode(req, dns.RcodeNameError)
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String()
}

func TestLookupDMARC(t *testing.T) {
	r := NewResolver([]string{startServer(t)}, time.Second, zap.NewNop())
	ctx := context.Background()

	record, err := r.LookupDMARC(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "v=DMARC1; p=reject; rua=mailto:d@example.com", record)

	record, err = r.LookupDMARC(ctx, "multi.example")
	require.NoError(t, err)
	assert.Equal(t, "v=DMARC1; p=none", record)

	record, err = r.LookupDMARC(ctx, "nopolicy.example")
	require.NoError(t, err)
	assert.Equal(t, "some text", record)

	_, err = r.LookupDMARC(ctx, "missing.example")
	assert.ErrorIs(t, err, core.ErrNoDMARCRecord)

	_, err = r.LookupDMARC(ctx, "empty.example")
	assert.ErrorIs(t, err, core.ErrNoDMARCRecord)

	_, err = r.LookupDMARC(ctx, "broken.example")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNoDMARCRecord)
}

func TestLookupDMARCFallsThroughDeadServer(t *testing.T) {
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dead.Close()

	r := NewResolver([]string{dead.LocalAddr().String(), startServer(t)}, 200*time.Millisecond, zap.NewNop())

	record, err := r.LookupDMARC(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Contains(t, record, "p=reject")
}

func TestLookupDMARCTimeout(t *testing.T) {
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dead.Close()

	r := NewResolver([]string{dead.LocalAddr().String()}, 100*time.Millisecond, zap.NewNop())

	_, err = r.LookupDMARC(context.Background(), "example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNoDMARCRecord)
}
