package app

import (
	"context"
	"sync"

	"github.com/mselser95/sports-arb/internal/notify"
	"github.com/mselser95/sports-arb/internal/scanner"
	"github.com/mselser95/sports-arb/internal/storage"
	"github.com/mselser95/sports-arb/pkg/cache"
	"github.com/mselser95/sports-arb/pkg/config"
	"github.com/mselser95/sports-arb/pkg/healthprobe"
	"github.com/mselser95/sports-arb/pkg/httpserver"
	"github.com/mselser95/sports-arb/pkg/websocket"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	healthChecker  *healthprobe.HealthChecker
	httpServer     *httpserver.Server
	descriptors    cache.Cache
	scanner        *scanner.Scanner
	hub            *websocket.Hub
	writer         *storage.AsyncWriter
	publisher      notify.Publisher
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	scannerStarted bool
}

// Options holds application options.
type Options struct {
	Sports []string // Overrides SPORTS when set
}
