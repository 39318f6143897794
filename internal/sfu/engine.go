// Package sfu implements the media-engine collaborator on top of pion.
package sfu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
)

// After this many consecutive peer-connection failures the engine is
// considered exhausted and reports fatal.
const maxConsecutiveFailures = 3

type Config struct {
	STUNServers []string
	// Ephemeral UDP range for media. Zero values leave the OS default.
	MinPort uint16
	MaxPort uint16
}

// Engine owns the webrtc API instance all routers share. It satisfies
// core.MediaEngine.
type Engine struct {
	api    *webrtc.API
	rtcCfg webrtc.Configuration
	stun   []string

	failures  atomic.Int32
	fatal     chan error
	fatalOnce sync.Once
}

func NewEngine(cfg Config) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := registerCodecs(m); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("pli interceptor: %w", err)
	}
	ir.Add(pli)

	se := webrtc.SettingEngine{}
	if cfg.MinPort != 0 && cfg.MaxPort != 0 {
		if err := se.SetEphemeralUDPPortRange(cfg.MinPort, cfg.MaxPort); err != nil {
			return nil, fmt.Errorf("udp port range: %w", err)
		}
	}

	e := &Engine{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(ir),
			webrtc.WithSettingEngine(se),
		),
		stun:  cfg.STUNServers,
		fatal: make(chan error, 1),
	}
	if len(cfg.STUNServers) > 0 {
		e.rtcCfg = webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: cfg.STUNServers}},
		}
	}
	return e, nil
}

// registerCodecs mirrors the historical router codec list: opus, VP8
// and constrained-high H264.
func registerCodecs(m *webrtc.MediaEngine) error {
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2,
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return err
	}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType: webrtc.MimeTypeVP8, ClockRate: 90000,
		},
		PayloadType: 96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return err
	}
	return m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "packetization-mode=1;profile-level-id=4d0032;level-asymmetry-allowed=1",
		},
		PayloadType: 102,
	}, webrtc.RTPCodecTypeVideo)
}

func (e *Engine) CreateRouter(_ context.Context) (core.Router, error) {
	return &Router{
		engine:    e,
		producers: make(map[string]*Producer),
	}, nil
}

// Fatal fires once the engine can no longer create media objects.
func (e *Engine) Fatal() <-chan error { return e.fatal }

func (e *Engine) Close() {}

// notePCResult tracks consecutive peer-connection failures; running out
// of the configured UDP range shows up exactly this way.
func (e *Engine) notePCResult(err error) {
	if err == nil {
		e.failures.Store(0)
		return
	}
	if e.failures.Add(1) >= maxConsecutiveFailures {
		e.fatalOnce.Do(func() {
			log.Error().Err(err).Str("module", "sfu").Msg("media engine exhausted")
			e.fatal <- fmt.Errorf("media engine exhausted: %w", err)
		})
	}
}
