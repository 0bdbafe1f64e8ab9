package kubernetes

import (
	"fmt"

	"github.com/opmodel/hal/internal/output"
)

type warningLogger interface {
	Warn(msg string, keyvals ...any)
	Debug(msg string, keyvals ...any)
}

type outputLogger struct{}

func (outputLogger) Warn(msg string, keyvals ...any)  { output.Warn(msg, keyvals...) }
func (outputLogger) Debug(msg string, keyvals ...any) { output.Debug(msg, keyvals...) }

// halWarningHandler routes API server warnings through the hal logger
// instead of klog.
type halWarningHandler struct {
	// level is "warn" (default), "debug" or "suppress".
	level  string
	logger warningLogger
}

func (h *halWarningHandler) HandleWarningHeader(_ int, _ string, text string) {
	log := h.logger
	if log == nil {
		log = outputLogger{}
	}
	msg := fmt.Sprintf("k8s API warning: %s", text)
	switch h.level {
	case "suppress":
	case "debug":
		log.Debug(msg)
	default:
		log.Warn(msg)
	}
}
