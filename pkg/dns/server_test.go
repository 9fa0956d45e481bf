package dns

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cuemby/tracething/pkg/source"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testResponseWriter captures the message a handler writes
type testResponseWriter struct {
	msg *dns.Msg
}

func (w *testResponseWriter) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv6loopback, Port: 53}
}

func (w *testResponseWriter) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv6loopback, Port: 40000}
}

func (w *testResponseWriter) Network() string { return "udp" }

func (w *testResponseWriter) WriteMsg(m *dns.Msg) error {
	w.msg = m
	return nil
}

func (w *testResponseWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *testResponseWriter) Close() error                { return nil }
func (w *testResponseWriter) TsigStatus() error           { return nil }
func (w *testResponseWriter) TsigTimersOnly(bool)         {}
func (w *testResponseWriter) Hijack()                     {}

func newTestServer(t *testing.T, sources map[string]source.Source) *Server {
	t.Helper()
	env := newTestEnv(t, 16, sources)
	return NewServer(env.router, &Config{ListenAddr: "127.0.0.1:0", Networks: []string{"udp"}})
}

// TestNewServerDefaults tests configuration defaults
func TestNewServerDefaults(t *testing.T) {
	s := NewServer(nil, nil)

	assert.Equal(t, DefaultListenAddr, s.listenAddr)
	assert.Equal(t, []string{"udp", "tcp"}, s.networks)
	assert.False(t, s.IsRunning())
}

// TestHandleDNSQuery tests reply shaping for well-formed messages
func TestHandleDNSQuery(t *testing.T) {
	s := newTestServer(t, map[string]source.Source{"static": &recordingSource{text: "hi"}})

	tests := []struct {
		name    string
		qname   string
		qtype   uint16
		answers int
	}{
		{name: "answered AAAA", qname: "x.static." + testSuffix, qtype: dns.TypeAAAA, answers: 1},
		{name: "NS at apex", qname: testSuffix, qtype: dns.TypeNS, answers: 1},
		{name: "unknown source", qname: "x.nope." + testSuffix, qtype: dns.TypeAAAA, answers: 0},
		{name: "unsupported type", qname: "x.static." + testSuffix, qtype: dns.TypeMX, answers: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := new(dns.Msg)
			req.SetQuestion(tt.qname, tt.qtype)

			w := &testResponseWriter{}
			s.handleDNSQuery(w, req)

			require.NotNil(t, w.msg)
			assert.Equal(t, req.Id, w.msg.Id)
			assert.True(t, w.msg.Response)
			assert.True(t, w.msg.Authoritative)
			assert.Equal(t, dns.RcodeSuccess, w.msg.Rcode)
			assert.Len(t, w.msg.Answer, tt.answers)
			require.Len(t, w.msg.Question, 1)
			assert.Equal(t, tt.qname, w.msg.Question[0].Name)
		})
	}
}

// TestHandleDNSQueryFormErr tests messages without exactly one question
func TestHandleDNSQueryFormErr(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("no questions", func(t *testing.T) {
		req := new(dns.Msg)
		req.Id = 42

		w := &testResponseWriter{}
		s.handleDNSQuery(w, req)

		require.NotNil(t, w.msg)
		assert.Equal(t, dns.RcodeFormatError, w.msg.Rcode)
		assert.Empty(t, w.msg.Answer)
	})

	t.Run("two questions", func(t *testing.T) {
		req := new(dns.Msg)
		req.SetQuestion(testSuffix, dns.TypeNS)
		req.Question = append(req.Question, dns.Question{Name: testSuffix, Qtype: dns.TypeNS, Qclass: dns.ClassINET})

		w := &testResponseWriter{}
		s.handleDNSQuery(w, req)

		require.NotNil(t, w.msg)
		assert.Equal(t, dns.RcodeFormatError, w.msg.Rcode)
		assert.Empty(t, w.msg.Answer)
	})
}

// TestHandleDNSQueryRecoversPanic tests that a panicking source yields an empty answer
func TestHandleDNSQueryRecoversPanic(t *testing.T) {
	s := newTestServer(t, map[string]source.Source{
		"boom": source.SourceFunc(func(context.Context, []string) (string, error) {
			panic("source exploded")
		}),
	})

	req := new(dns.Msg)
	req.SetQuestion("x.boom."+testSuffix, dns.TypeAAAA)

	w := &testResponseWriter{}
	assert.NotPanics(t, func() { s.handleDNSQuery(w, req) })

	require.NotNil(t, w.msg)
	assert.Equal(t, dns.RcodeSuccess, w.msg.Rcode)
	assert.Empty(t, w.msg.Answer)
}

// TestServerUDPRoundTrip tests a real listener end to end
func TestServerUDPRoundTrip(t *testing.T) {
	s := newTestServer(t, map[string]source.Source{"static": &recordingSource{text: "over the wire"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer func() { _ = s.Stop() }()
	assert.True(t, s.IsRunning())

	s.mu.RLock()
	target := s.servers[0].PacketConn.LocalAddr().String()
	s.mu.RUnlock()

	client := &dns.Client{Net: "udp", Timeout: 2 * time.Second}

	req := new(dns.Msg)
	req.SetQuestion("wire.static."+testSuffix, dns.TypeAAAA)
	resp, _, err := client.Exchange(req, target)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "2a0f:9400:7311:1337:1::", resp.Answer[0].(*dns.AAAA).AAAA.String())

	// Read the first chunk back over the same listener
	req = new(dns.Msg)
	req.SetQuestion("0.0.0.0.0.0.0.0.0.0.0.0.2.0.0.0.7.3.3.1.1.1.3.7.0.0.4.9.f.0.a.2.ip6.arpa.", dns.TypePTR)
	resp, _, err = client.Exchange(req, target)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "over.the.wire.0--0.f0x.es.", resp.Answer[0].(*dns.PTR).Ptr)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

// TestServerStartTwice tests that a running server refuses a second start
func TestServerStartTwice(t *testing.T) {
	s := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer func() { _ = s.Stop() }()

	assert.Error(t, s.Start(ctx))
}
