package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := string(Render("squatwatch@example.com", "ops@example.com",
		NewEmail("Possible typosquatting", "line one\nline two"), date))

	require.Contains(t, msg, "From: squatwatch@example.com\r\n")
	require.Contains(t, msg, "To: ops@example.com\r\n")
	require.Contains(t, msg, "Subject: Possible typosquatting\r\n")
	require.Contains(t, msg, "Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n")
	require.Contains(t, msg, "@example.com>\r\n")
	require.Contains(t, msg, "Content-Type: text/plain; charset=utf-8\r\n")
	require.True(t, strings.HasSuffix(msg, "\r\n\r\nline one\r\nline two\r\n"), msg)
}

func TestRender_EncodesNonASCIISubject(t *testing.T) {
	msg := string(Render("a@example.com", "b@example.com", NewEmail("caf\u00e9", "x"), time.Now()))
	require.Contains(t, msg, "Subject: =?utf-8?q?caf=C3=A9?=\r\n")
}

func TestMemoryMailer(t *testing.T) {
	m := NewMemoryMailer()
	boom := errors.New("mailbox full")
	m.FailFor("bad@example.com", boom)
	email := NewEmail("subject", "body")

	require.NoError(t, m.Send(context.Background(), "good@example.com", email))
	require.ErrorIs(t, m.Send(context.Background(), "bad@example.com", email), boom)

	require.Equal(t, []SentEmail{{Recipient: "good@example.com", Subject: "subject", Body: "body"}}, m.Sent())
}

func TestFileMailer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	m := NewFileMailer(dir, "squatwatch@example.com")

	require.NoError(t, m.Send(context.Background(), "a@example.com", NewEmail("one", "first")))
	require.NoError(t, m.Send(context.Background(), "b@example.com", NewEmail("two", "second")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.True(t, strings.HasSuffix(e.Name(), ".eml"), e.Name())
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(data), "From: squatwatch@example.com")
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"empty", "", 0, ""},
		{"plain", "A fast serializer", 0, "A fast serializer"},
		{"tags stripped", "<b>Fast</b> <i>serializer</i>", 0, "Fast serializer"},
		{"script dropped", "Safe<script>alert(1)</script> text", 0, "Safe text"},
		{"comment dropped", "Visible<!-- hidden --> text", 0, "Visible text"},
		{"format chars removed", "se\u200brde", 0, "serde"},
		{"control chars become spaces", "line\x07one\ttwo\nthree", 0, "line one two three"},
		{"truncated", "abcdefghij", 5, "abcde..."},
		{"not truncated at limit", "abcde", 5, "abcde"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input, tt.limit); got != tt.expected {
				t.Errorf("PlainText(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.expected)
			}
		})
	}
}

func generateKey(t *testing.T, passphrase string) (*crypto.Key, string) {
	t.Helper()
	key, err := crypto.GenerateKey("Squatwatch Test", "test@example.com", "x25519", 0)
	require.NoError(t, err)
	toArmor := key
	if passphrase != "" {
		toArmor, err = key.Lock([]byte(passphrase))
		require.NoError(t, err)
	}
	armored, err := toArmor.Armor()
	require.NoError(t, err)
	return key, armored
}

func verify(t *testing.T, key *crypto.Key, text, armoredSig string) error {
	t.Helper()
	pub, err := key.ToPublic()
	require.NoError(t, err)
	ring, err := crypto.NewKeyRing(pub)
	require.NoError(t, err)
	sig, err := crypto.NewPGPSignatureFromArmored(armoredSig)
	require.NoError(t, err)
	return ring.VerifyDetached(crypto.NewPlainMessageFromString(text), sig, 0)
}

func TestSigner(t *testing.T) {
	key, armored := generateKey(t, "")
	s, err := NewSigner(armored, nil)
	require.NoError(t, err)
	require.Equal(t, key.GetFingerprint(), s.Fingerprint())

	sig, err := s.Sign("hello")
	require.NoError(t, err)
	require.Contains(t, sig, "BEGIN PGP SIGNATURE")
	require.NoError(t, verify(t, key, "hello", sig))
	require.Error(t, verify(t, key, "tampered", sig))
}

func TestSigner_LockedKey(t *testing.T) {
	_, armored := generateKey(t, "secret")

	_, err := NewSigner(armored, nil)
	require.ErrorContains(t, err, "locked")

	_, err = NewSigner(armored, []byte("wrong"))
	require.Error(t, err)

	s, err := NewSigner(armored, []byte("secret"))
	require.NoError(t, err)
	_, err = s.Sign("hello")
	require.NoError(t, err)
}

func TestSigner_PublicKeyRejected(t *testing.T) {
	key, _ := generateKey(t, "")
	pub, err := key.GetArmoredPublicKey()
	require.NoError(t, err)

	_, err = NewSigner(pub, nil)
	require.ErrorContains(t, err, "not a private key")
}

func TestLoadSigner(t *testing.T) {
	_, armored := generateKey(t, "")
	path := filepath.Join(t.TempDir(), "key.asc")
	require.NoError(t, os.WriteFile(path, []byte(armored), 0600))

	_, err := LoadSigner(path, nil)
	require.NoError(t, err)

	_, err = LoadSigner(filepath.Join(t.TempDir(), "missing.asc"), nil)
	require.Error(t, err)
}

func TestSigningMailer(t *testing.T) {
	key, armored := generateKey(t, "")
	s, err := NewSigner(armored, nil)
	require.NoError(t, err)

	mem := NewMemoryMailer()
	m := NewSigningMailer(mem, s)
	require.NoError(t, m.Send(context.Background(), "ops@example.com", NewEmail("subject", "the body")))

	sent := mem.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "subject", sent[0].Subject)
	body, sig, ok := strings.Cut(sent[0].Body, SignedBodySeparator)
	require.True(t, ok)
	require.Equal(t, "the body", body)
	require.NoError(t, verify(t, key, body, sig))
}

// fakeSMTP accepts one session, records the DATA section, and answers every
// command with success. It advertises no extensions.
func fakeSMTP(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 localhost ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					ch <- data.String()
					reply("250 OK")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case cmd == "DATA":
				inData = true
				reply("354 End data with <CR><LF>.<CR><LF>")
			case cmd == "QUIT":
				reply("221 Bye")
				return
			default:
				reply("250 OK")
			}
		}
	}()
	return ln.Addr().String(), ch
}

func TestSMTPMailer(t *testing.T) {
	addr, received := fakeSMTP(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)

	m := NewSMTPMailer(SMTPConfig{Host: host, Port: port, From: "squatwatch@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Send(ctx, "ops@example.com", NewEmail("hi", "hello there")))

	select {
	case data := <-received:
		require.Contains(t, data, "To: ops@example.com\r\n")
		require.Contains(t, data, "hello there")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPMailer_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "a@example.com", DialTimeout: time.Second})
	err = m.Send(context.Background(), "ops@example.com", NewEmail("hi", "x"))
	require.ErrorContains(t, err, "failed to connect")
}

// stalledSMTP accepts connections and never says anything.
func stalledSMTP(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestSMTPMailer_StalledRelay(t *testing.T) {
	tests := []struct {
		name        string
		sendTimeout time.Duration
		ctxTimeout  time.Duration
	}{
		{"send timeout", 200 * time.Millisecond, 0},
		{"context deadline", time.Hour, 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := stalledSMTP(t)
			m := NewSMTPMailer(SMTPConfig{
				Host:        "127.0.0.1",
				Port:        port,
				From:        "a@example.com",
				DialTimeout: time.Second,
				SendTimeout: tt.sendTimeout,
			})

			ctx := context.Background()
			if tt.ctxTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.ctxTimeout)
				defer cancel()
			}

			done := make(chan error, 1)
			go func() { done <- m.Send(ctx, "ops@example.com", NewEmail("hi", "x")) }()

			select {
			case err := <-done:
				require.ErrorIs(t, err, os.ErrDeadlineExceeded)
			case <-time.After(5 * time.Second):
				t.Fatal("Send did not give up on a relay that never answers")
			}
		})
	}
}

func TestNewSMTPMailer_Defaults(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.example.com"})
	require.Equal(t, 587, m.cfg.Port)
	require.Equal(t, 30*time.Second, m.cfg.DialTimeout)
	require.Equal(t, time.Minute, m.cfg.SendTimeout)
}

func TestIssueReporter(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/acme/triage/issues" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 42, "html_url": "https://github.com/acme/triage/issues/42"}`))
	}))
	defer srv.Close()

	r, err := NewIssueReporter("acme", "triage", "", WithAPIURL(srv.URL), WithLabels("typosquat"))
	require.NoError(t, err)

	url, err := r.Report(context.Background(), NewEmail("Possible typosquatting", "details"))
	require.NoError(t, err)
	require.Equal(t, "https://github.com/acme/triage/issues/42", url)
	require.Equal(t, "Possible typosquatting", got["title"])
	require.Equal(t, "details", got["body"])
	require.Equal(t, []any{"typosquat"}, got["labels"])
}

func TestIssueReporter_Errors(t *testing.T) {
	_, err := NewIssueReporter("", "triage", "")
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Resource not accessible"}`))
	}))
	defer srv.Close()

	r, err := NewIssueReporter("acme", "triage", "token", WithAPIURL(srv.URL))
	require.NoError(t, err)
	_, err = r.Report(context.Background(), NewEmail("t", "b"))
	require.ErrorContains(t, err, "acme/triage")
}
