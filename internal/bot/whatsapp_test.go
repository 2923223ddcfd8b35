package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amuthap/wedding-automation/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentForm struct {
	APIKey, Sender, Number, MediaType, Caption, URL string
}

// fakeGateway records every form post and fails recipients listed in fail.
type fakeGateway struct {
	mu   sync.Mutex
	sent []sentForm
	fail map[string]bool
}

func (g *fakeGateway) server(t *testing.T) *httptest.Server {
	t.Helper()
	router := gin.New()
	router.POST("/send-media", func(c *gin.Context) {
		f := sentForm{
			APIKey:    c.PostForm("api_key"),
			Sender:    c.PostForm("sender"),
			Number:    c.PostForm("number"),
			MediaType: c.PostForm("media_type"),
			Caption:   c.PostForm("caption"),
			URL:       c.PostForm("url"),
		}
		g.mu.Lock()
		g.sent = append(g.sent, f)
		g.mu.Unlock()
		if g.fail[f.Number] {
			c.JSON(http.StatusBadGateway, gin.H{"status": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": true})
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type countingPacer struct{ calls int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.calls++
	return nil
}

func newBot(srv *httptest.Server, pacer Pacer) *WhatsAppBot {
	return NewWhatsAppBot(Options{
		APIURL:      srv.URL + "/send-media",
		APIKey:      "key",
		Sender:      "919000000000",
		CountryCode: "91",
		GroupSuffix: "@g.us",
		Client:      srv.Client(),
		Pacer:       pacer,
	})
}

func TestSendToIndividual(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)
	b := newBot(srv, nil)

	err := b.SendToIndividual(context.Background(), "+91 98940-45150", "https://cdn.example/a.jpg", "Dear *Rtn.Jane*")
	require.NoError(t, err)
	require.Len(t, gw.sent, 1)
	assert.Equal(t, sentForm{
		APIKey:    "key",
		Sender:    "919000000000",
		Number:    "919894045150",
		MediaType: "image",
		Caption:   "Dear *Rtn.Jane*",
		URL:       "https://cdn.example/a.jpg",
	}, gw.sent[0])
}

func TestSendToIndividualErrors(t *testing.T) {
	gw := &fakeGateway{fail: map[string]bool{"919000000001": true}}
	srv := gw.server(t)
	b := newBot(srv, nil)

	assert.Error(t, b.SendToIndividual(context.Background(), "none", "u", "c"))
	assert.Empty(t, gw.sent)

	err := b.SendToIndividual(context.Background(), "9000000001", "u", "c")
	assert.ErrorContains(t, err, "status: 502")
}

func TestSendToGroupsContinuesAfterFailure(t *testing.T) {
	hook := test.NewGlobal()
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	groups := []string{"G1", "G2", "G3", "G4", "G5"}
	gw := &fakeGateway{fail: map[string]bool{"G3@g.us": true}}
	srv := gw.server(t)
	pacer := &countingPacer{}

	results := newBot(srv, pacer).SendToGroups(context.Background(), groups, "https://cdn.example/a.jpg", "group caption")

	require.Len(t, results, len(groups))
	for i, r := range results {
		assert.Equal(t, groups[i], r.GroupID)
		if r.GroupID == "G3" {
			assert.Error(t, r.Err)
		} else {
			assert.NoError(t, r.Err, r.GroupID)
		}
	}
	require.Len(t, gw.sent, len(groups))
	for i, f := range gw.sent {
		assert.Equal(t, groups[i]+"@g.us", f.Number)
		assert.Equal(t, "group caption", f.Caption)
	}
	assert.Equal(t, len(groups)-1, pacer.calls)

	var failed int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["group_id"] == "G3" {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

type failingPacer struct{ err error }

func (p failingPacer) Wait(ctx context.Context) error { return p.err }

func TestSendToGroupsLogsPacingFailure(t *testing.T) {
	hook := test.NewGlobal()
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	gw := &fakeGateway{}
	srv := gw.server(t)
	waitErr := errors.New("rate: wait would exceed deadline")

	results := newBot(srv, failingPacer{err: waitErr}).SendToGroups(context.Background(), []string{"G1", "G2"}, "u", "c")

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, waitErr)
	require.Len(t, gw.sent, 1)

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["group_id"] == "G2" && e.Data[logrus.ErrorKey] == waitErr {
			logged = true
		}
	}
	assert.True(t, logged, "pacing failure for G2 should be logged")
}

func TestSendToGroupsUnreachableGateway(t *testing.T) {
	b := NewWhatsAppBot(Options{APIURL: "http://127.0.0.1:1/send-media", GroupSuffix: "@g.us"})
	results := b.SendToGroups(context.Background(), []string{"a", "b"}, "u", "c")
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestAddresses(t *testing.T) {
	b := NewWhatsAppBot(Options{CountryCode: "91", GroupSuffix: "@g.us"})
	assert.Equal(t, "919894045150", b.IndividualNumber("https://wa.me/919894045150"))
	assert.Equal(t, "120363314164316321@g.us", b.GroupAddress("120363314164316321"))
}

func TestDelayPacer(t *testing.T) {
	start := time.Now()
	require.NoError(t, DelayPacer{Delay: 20 * time.Millisecond}.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(DelayPacer{Delay: time.Hour}.Wait(ctx), context.Canceled))
}

func TestRatePacer(t *testing.T) {
	p := NewRatePacer(50, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestNewPacer(t *testing.T) {
	p, err := NewPacer(config.PacingConfig{Mode: "delay", Delay: config.Duration{Duration: time.Second}})
	require.NoError(t, err)
	assert.Equal(t, DelayPacer{Delay: time.Second}, p)

	p, err = NewPacer(config.PacingConfig{Mode: "rate", Rate: 2, Burst: 1})
	require.NoError(t, err)
	assert.IsType(t, &RatePacer{}, p)

	_, err = NewPacer(config.PacingConfig{Mode: "sometimes"})
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Gateway.APIKey = "k"
	b, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(b.GroupAddress("x"), "@g.us"))
}
