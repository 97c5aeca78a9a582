package api

import (
	"net/http"

	"github.com/okian/vendorhub/pkg/logger"
)

// BackupHandler streams store snapshots.
type BackupHandler struct {
	backups BackupProvider
	logger  logger.Logger
}

// NewBackupHandler creates a new backup handler.
func NewBackupHandler(backups BackupProvider, log logger.Logger) *BackupHandler {
	return &BackupHandler{backups: backups, logger: log}
}

// trackingWriter remembers whether the body was started.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.wrote = true
		w.Header().Set("Content-Type", "application/zstd")
		w.Header().Set("Content-Disposition", `attachment; filename="vendorhub.img.zst"`)
	}
	return w.ResponseWriter.Write(p)
}

// HandleBackup handles GET /backup requests. Once streaming has begun a
// failure can only be logged; the client sees a truncated body.
func (h *BackupHandler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	tw := &trackingWriter{ResponseWriter: w}
	n, err := h.backups.Backup(r.Context(), tw)
	if err == nil {
		h.logger.Info(r.Context(), "backup streamed", logger.Int("image_bytes", int(n)))
		return
	}
	if !tw.wrote {
		writeFailure(r.Context(), w, h.logger, "api.backup", err)
		return
	}
	h.logger.Error(r.Context(), "backup interrupted", logger.Error(WrapKind("api.backup", ErrInternal, err)))
}
