package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	// Shutdown components in dependency order
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting API requests
	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Let an in-flight scan finish so its results reach storage
	err = a.waitForScanner(shutdownCtx)
	if err != nil {
		a.logger.Error("scanner-stop-error", zap.Error(err))
	}

	// Disconnect websocket clients
	a.hub.Close()

	// Flush pending storage writes
	err = a.shutdownStorage(shutdownCtx)
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Close notification publisher
	err = a.publisher.Close()
	if err != nil {
		a.logger.Error("publisher-close-error", zap.Error(err))
	}

	a.descriptors.Close()

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) waitForScanner(ctx context.Context) error {
	if !a.scannerStarted {
		return nil
	}

	select {
	case <-a.scanner.Done():
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for scanner to stop")
	}
}

func (a *App) shutdownStorage(ctx context.Context) error {
	if a.writer == nil {
		return nil
	}
	return a.writer.Close(ctx)
}
