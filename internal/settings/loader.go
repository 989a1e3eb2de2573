package settings

import (
	"fmt"

	"go.uber.org/zap"
)

// OverlayReader loads the override file named by a directive.
type OverlayReader func(path string) (Overlay, error)

// Loader resolves settings and applies the override file when one is present.
type Loader struct {
	resolver    *Resolver
	readOverlay OverlayReader
	logger      *zap.Logger
}

// NewLoader creates a Loader. A nil reader defaults to ReadOverlay.
func NewLoader(resolver *Resolver, reader OverlayReader, logger *zap.Logger) *Loader {
	if reader == nil {
		reader = ReadOverlay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		resolver:    resolver,
		readOverlay: reader,
		logger:      logger,
	}
}

// Load resolves settings for signals and merges the override file last.
func (l *Loader) Load(signals Signals) (Resolution, error) {
	res, err := l.resolver.Resolve(signals)
	if err != nil {
		return Resolution{}, err
	}
	if res.Override == nil {
		return res, nil
	}

	overlay, err := l.readOverlay(res.Override.Path)
	if err != nil {
		return Resolution{}, fmt.Errorf("load override %s: %w", res.Override.Path, err)
	}

	l.logger.Info("override file applied",
		zap.String("path", res.Override.Path),
		zap.Int("settings", len(overlay.Settings)),
		zap.Int("config_objects", len(overlay.Config)),
		zap.Int("container_yamls", len(overlay.ContainerYAMLs)),
	)

	return Apply(res, overlay), nil
}
