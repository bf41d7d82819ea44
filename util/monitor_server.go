package util

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

type MonitorServer struct {
	running *sync.Mutex
	srv     *http.Server
	srvMu   sync.RWMutex // protects srv field
	mux     *http.ServeMux
}

func NewMonitorServer() *MonitorServer {
	var s MonitorServer
	s.running = &sync.Mutex{}
	s.srv = &http.Server{}
	s.mux = http.NewServeMux()
	return &s
}

func (s *MonitorServer) Start() error {
	return s.StartOn(Config.GetInt("details_port"))
}

func (s *MonitorServer) StartOn(port int) error {
	if !s.running.TryLock() {
		return fmt.Errorf("already running")
	} else {
		s.running.Unlock()
	}
	go func() {
		s.running.Lock()

		newSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           s,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.srvMu.Lock()
		s.srv = newSrv
		s.srvMu.Unlock()

		Logger.Info().Msgf("monitor server listening on %v", newSrv.Addr)
		if err := newSrv.ListenAndServe(); err != http.ErrServerClosed {
			Logger.Warn().Msgf("Problem loading monitor server: %v", err)
		}
		Logger.Debug().Msg("monitor server shutdown")
		s.running.Unlock()
	}()
	return nil
}

func (s *MonitorServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *MonitorServer) AddHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(path, handler)
}

func (s *MonitorServer) Shutdown(ctx context.Context) {
	s.srvMu.RLock()
	currentSrv := s.srv
	s.srvMu.RUnlock()

	if currentSrv != nil {
		if err := currentSrv.Shutdown(ctx); err != nil {
			Logger.Error().Msgf("Error shutting down monitor server: %v", err)
		}
	}
}

func (s *MonitorServer) Restart() {
	Logger.Debug().Msg("restarting monitor server")
	if !s.running.TryLock() { // only shutdown if not running
		Logger.Debug().Msg("monitor server running, shutting it down")
		s.Shutdown(context.TODO())
	} else {
		s.running.Unlock()
	}
	Logger.Debug().Msg("waiting for shutdown")
	s.running.Lock() // when server shuts down it will unlock, so wait for unlock
	Logger.Debug().Msg("http not running - good for startup")
	s.running.Unlock()
	if err := s.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
}
