// Package iceserver runs the STUN/TURN relay that WebRTC clients use for
// NAT traversal once the signaling hub has exchanged their SDP offers and
// ICE candidates. It is a sibling process to the signaling hub, not a
// dependency of it: the hub never inspects media or relay traffic.
//
// The original implementation carried two near-identical families of
// initializer functions — one named "STUNTurn" and one named "TURN" —
// that built the same UDP/TCP/TLS trio of pion/turn servers with no
// behavioral difference between them. This package keeps one.
package iceserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"regexp"

	"github.com/pion/turn/v4"
	"github.com/rs/zerolog"
)

// Config configures the relay. With EnableTLS set, TLS is skipped when
// CertFile doesn't exist, which lets a single binary run with or without a
// certificate; KeyFile is not checked, and a missing KeyFile alongside an
// existing CertFile makes Start fail.
type Config struct {
	PublicIP   string
	Realm      string
	ListenAddr string // host:port for the UDP/TCP listeners, e.g. "0.0.0.0:3478"
	TLSAddr    string // host:port for the TLS listener, e.g. "0.0.0.0:5349"
	CertFile   string
	KeyFile    string
	Users      string // "user1=pass1,user2=pass2"
	EnableTCP  bool
	EnableTLS  bool
}

// Server owns up to three pion/turn servers (UDP, TCP, TLS) sharing one
// relay address generator and auth handler.
type Server struct {
	udp *turn.Server
	tcp *turn.Server
	tls *turn.Server
	log zerolog.Logger
}

var credentialPattern = regexp.MustCompile(`(\w+)=(\w+)`)

// Start builds the relay address generator and auth handler once, then
// brings up the UDP listener unconditionally and the TCP/TLS listeners
// when the config asks for them.
func Start(cfg Config, log zerolog.Logger) (*Server, error) {
	users := make(map[string][]byte)
	for _, kv := range credentialPattern.FindAllStringSubmatch(cfg.Users, -1) {
		users[kv[1]] = turn.GenerateAuthKey(kv[1], cfg.Realm, kv[2])
	}
	authHandler := func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
		key, ok := users[username]
		log.Debug().Str("username", username).Bool("authenticated", ok).Stringer("from", srcAddr).Msg("turn auth attempt")
		return key, ok
	}

	relayGen := &turn.RelayAddressGeneratorStatic{
		RelayAddress: net.ParseIP(cfg.PublicIP),
		Address:      "0.0.0.0",
	}

	s := &Server{log: log}

	udpSrv, err := startUDP(cfg.ListenAddr, cfg.Realm, relayGen, authHandler)
	if err != nil {
		return nil, fmt.Errorf("udp turn listener: %w", err)
	}
	s.udp = udpSrv
	log.Info().Str("addr", cfg.ListenAddr).Msg("turn udp listener started")

	if cfg.EnableTCP {
		tcpSrv, err := startTCP(cfg.ListenAddr, cfg.Realm, relayGen, authHandler)
		if err != nil {
			return nil, fmt.Errorf("tcp turn listener: %w", err)
		}
		s.tcp = tcpSrv
		log.Info().Str("addr", cfg.ListenAddr).Msg("turn tcp listener started")
	}

	if cfg.EnableTLS {
		if _, statErr := os.Stat(cfg.CertFile); os.IsNotExist(statErr) {
			log.Warn().Str("cert", cfg.CertFile).Msg("tls certificate not found, skipping turns listener")
		} else {
			tlsSrv, err := startTLS(cfg, relayGen, authHandler)
			if err != nil {
				return nil, fmt.Errorf("tls turn listener: %w", err)
			}
			s.tls = tlsSrv
			log.Info().Str("addr", cfg.TLSAddr).Msg("turn tls listener started")
		}
	}

	return s, nil
}

func startUDP(addr, realm string, relayGen *turn.RelayAddressGeneratorStatic, authHandler turn.AuthHandler) (*turn.Server, error) {
	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, err
	}
	return turn.NewServer(turn.ServerConfig{
		Realm:       realm,
		AuthHandler: authHandler,
		PacketConnConfigs: []turn.PacketConnConfig{
			{PacketConn: conn, RelayAddressGenerator: relayGen},
		},
	})
}

func startTCP(addr, realm string, relayGen *turn.RelayAddressGeneratorStatic, authHandler turn.AuthHandler) (*turn.Server, error) {
	listener, err := net.Listen("tcp4", addr)
	if err != nil {
		return nil, err
	}
	return turn.NewServer(turn.ServerConfig{
		Realm:       realm,
		AuthHandler: authHandler,
		ListenerConfigs: []turn.ListenerConfig{
			{Listener: listener, RelayAddressGenerator: relayGen},
		},
	})
}

func startTLS(cfg Config, relayGen *turn.RelayAddressGeneratorStatic, authHandler turn.AuthHandler) (*turn.Server, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading certificate: %w", err)
	}
	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}

	tcpListener, err := net.Listen("tcp4", cfg.TLSAddr)
	if err != nil {
		return nil, err
	}
	listener := tls.NewListener(tcpListener, tlsConfig)

	return turn.NewServer(turn.ServerConfig{
		Realm:       cfg.Realm,
		AuthHandler: authHandler,
		ListenerConfigs: []turn.ListenerConfig{
			{Listener: listener, RelayAddressGenerator: relayGen},
		},
	})
}

// Close shuts down every listener that was started. Best effort: the
// first error is returned but every server still gets a Close call.
func (s *Server) Close(ctx context.Context) error {
	var first error
	for _, srv := range []*turn.Server{s.udp, s.tcp, s.tls} {
		if srv == nil {
			continue
		}
		if err := srv.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
