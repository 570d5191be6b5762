package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

// testSubscription builds a subscription with real P-256 keys pointed at
// a push service stub.
func testSubscription(t *testing.T, endpoint string) *subscription.Subscription {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return &subscription.Subscription{
		Endpoint: endpoint,
		Keys: subscription.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}

func newTestSender(t *testing.T) *Sender {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return New(Config{
		Subject:        "ops@example.com",
		PublicKey:      pub,
		PrivateKey:     priv,
		TTL:            time.Hour,
		AttemptTimeout: 5 * time.Second,
	})
}

func TestSendOutcomeClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		delivered bool
		gone      bool
	}{
		{"created", http.StatusCreated, true, false},
		{"ok", http.StatusOK, true, false},
		{"gone", http.StatusGone, false, true},
		{"not_found", http.StatusNotFound, false, true},
		{"server_error", http.StatusInternalServerError, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer ts.Close()

			s := newTestSender(t)
			out := s.Send(context.Background(), testSubscription(t, ts.URL), []byte(`{"title":"t"}`))
			require.Equal(t, tc.delivered, out.Delivered)
			require.Equal(t, tc.gone, out.Gone)
			if !tc.delivered {
				require.Error(t, out.Err)
			}
		})
	}
}

func TestSendAttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	s := newTestSender(t)
	s.cfg.AttemptTimeout = 50 * time.Millisecond

	start := time.Now()
	out := s.Send(context.Background(), testSubscription(t, ts.URL), []byte(`{}`))
	require.Error(t, out.Err)
	require.False(t, out.Delivered)
	require.Less(t, time.Since(start), 2*time.Second)
}
