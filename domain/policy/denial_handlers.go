package policy

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/cligate/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*SlogDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)

// SlogDenialHandler logs denials through a structured logger.
type SlogDenialHandler struct {
	Logger *slog.Logger
}

func (h *SlogDenialHandler) OnDenial(kind string, subject string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(context.Background(), "cligate: request denied",
		"kind", kind,
		"user", subject,
		"reason", reason,
	)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(kind string, subject string, reason string) {}

// Denial kinds reported to a DenialHandler.
const (
	DenialAdmission     = "admission"
	DenialAuthorization = "authorization"
	DenialPermission    = "permission"
)
