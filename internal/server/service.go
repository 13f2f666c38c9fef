package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mfeldt/regbank/internal/admin"
	"github.com/mfeldt/regbank/internal/mbus"
	"github.com/mfeldt/regbank/internal/observability"
	"github.com/mfeldt/regbank/internal/points"
)

// ServiceConfig configures the Modbus TCP endpoint.
type ServiceConfig struct {
	ListenAddr  string
	AdminAddr   string
	NodeID      string
	UnitID      uint8
	CorsOrigins []string
	ReadTimeout time.Duration
	Limits      mbus.Limits
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:  ":1502",
		NodeID:      "regbank.local",
		UnitID:      1,
		ReadTimeout: 60 * time.Second,
		Limits:      mbus.DefaultLimits(),
	}
}

// Service runs the Modbus TCP endpoint and, when configured, the admin
// surface, over one shared engine.
type Service struct {
	cfg    ServiceConfig
	engine *Engine
	pts    *points.Store

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	clientCount atomic.Int64
}

func NewServiceWithConfig(cfg ServiceConfig, engine *Engine, pts *points.Store) *Service {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultServiceConfig().ReadTimeout
	}
	if cfg.Limits.MaxPDUBytes == 0 {
		cfg.Limits = mbus.DefaultLimits()
	}
	return &Service{
		cfg:    cfg,
		engine: engine,
		pts:    pts,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Run blocks until signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("modbus listening")

	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminAddr) != "" {
		adm := admin.New(s.cfg.NodeID, s.engine, admin.Registries{
			Holding: s.engine.holdingReg,
			Input:   s.engine.inputReg,
		}, s.pts, s.cfg.CorsOrigins)
		log.Info().Str("addr", s.cfg.AdminAddr).Msg("admin listening")
		go func() {
			adminErr <- admin.Serve(ctx, s.cfg.AdminAddr, adm.Router())
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		if err != nil {
			return err
		}
		return <-serveErr
	}
}

// Serve accepts Modbus TCP connections on an existing listener until ctx is
// done.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	active := s.clientCount.Add(1)
	log.Debug().Str("remote", remote).Int64("active_clients", active).Msg("client connected")
	defer func() {
		remaining := s.clientCount.Add(-1)
		log.Debug().Str("remote", remote).Int64("active_clients", remaining).Msg("client disconnected")
	}()

	reader := bufio.NewReader(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		fr, err := mbus.ReadFrame(reader, s.cfg.Limits)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, mbus.ErrShortHeader) && !isConnClosed(err) {
				log.Warn().Str("remote", remote).Err(err).Msg("frame read failed")
			}
			return
		}

		// Unit 0 and 255 are conventionally accepted on TCP; anything else
		// must match the configured unit or the request is for some other
		// device behind a gateway and gets no answer.
		if !s.servesUnit(fr.Header.UnitID) {
			log.Debug().Uint8("unit_id", fr.Header.UnitID).Msg("request for foreign unit dropped")
			continue
		}

		resp := s.handleRequest(fr)
		if err := mbus.WriteFrame(conn, resp, s.cfg.Limits); err != nil {
			log.Warn().Str("remote", remote).Err(err).Msg("frame write failed")
			return
		}
	}
}

// handleRequest maps one request frame to its response frame. Storage is
// written before the dispatcher runs, and a rejected write produces an
// exception without any consumer being invoked; both properties come from the
// engine wiring, not from ordering here.
func (s *Service) handleRequest(fr mbus.Frame) mbus.Frame {
	start := time.Now()
	fn := fr.PDU[0]

	pdu, ex := s.servePDU(fn, fr.PDU[1:])
	result := "ok"
	if ex != 0 {
		pdu = mbus.BuildException(fn, ex)
		result = "exception"
		log.Debug().
			Uint8("function", fn).
			Uint8("exception", uint8(ex)).
			Msg("request rejected")
	}
	observability.RecordModbusRequest(s.cfg.NodeID, fn, result, time.Since(start))

	return mbus.Frame{
		Header: mbus.Header{
			TransactionID: fr.Header.TransactionID,
			UnitID:        fr.Header.UnitID,
		},
		PDU: pdu,
	}
}

func (s *Service) servePDU(fn uint8, data []byte) ([]byte, mbus.Exception) {
	switch fn {
	case mbus.FuncReadHolding, mbus.FuncReadInput:
		req, err := mbus.ParseReadRequest(data)
		if err != nil {
			return nil, mbus.ExIllegalDataValue
		}
		read := s.engine.ReadHoldingRegisters
		if fn == mbus.FuncReadInput {
			read = s.engine.ReadInputRegisters
		}
		words, err := read(req.Start, int(req.Quantity))
		if err != nil {
			return nil, mbus.ExIllegalDataAddress
		}
		return mbus.BuildReadResponse(fn, words), 0

	case mbus.FuncWriteSingle:
		req, err := mbus.ParseWriteSingleRequest(data)
		if err != nil {
			return nil, mbus.ExIllegalDataValue
		}
		if err := s.engine.WriteHoldingRegister(req.Addr, req.Value); err != nil {
			return nil, mbus.ExIllegalDataAddress
		}
		return mbus.BuildWriteSingleResponse(req.Addr, req.Value), 0

	case mbus.FuncWriteMultiple:
		req, err := mbus.ParseWriteMultipleRequest(data)
		if err != nil {
			return nil, mbus.ExIllegalDataValue
		}
		if err := s.engine.WriteHoldingRegisters(req.Start, req.Words); err != nil {
			return nil, mbus.ExIllegalDataAddress
		}
		return mbus.BuildWriteMultipleResponse(req.Start, uint16(len(req.Words))), 0

	default:
		return nil, mbus.ExIllegalFunction
	}
}

func (s *Service) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *Service) servesUnit(unit uint8) bool {
	if s.cfg.UnitID == 0 {
		return true
	}
	return unit == s.cfg.UnitID || unit == 0 || unit == 0xff
}

func isConnClosed(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
