package handlers

import (
	"net/http"
)

// ConfigHandler echoes the effective converter configuration so clients can
// discover which extensions the server will accept.
type ConfigHandler struct {
	fileTypes map[string][]string
}

// NewConfigHandler creates a new config handler. fileTypes maps category
// names to extension lists.
func NewConfigHandler(fileTypes map[string][]string) *ConfigHandler {
	return &ConfigHandler{fileTypes: fileTypes}
}

// FileTypes handles GET /api/config/file-types.
func (h *ConfigHandler) FileTypes(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]interface{}{
		"file_types": h.fileTypes,
	})
}
