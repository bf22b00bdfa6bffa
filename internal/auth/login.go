package auth

import (
	"log/slog"
	"net/http"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/audit"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/httputil"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/metrics"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool `json:"success"`
}

// LoginHandler serves POST /login. It is a stub for the dashboard's login
// screen: any request carrying both a username and a password succeeds.
// No credential is verified or stored.
func LoginHandler(logger *slog.Logger, auditLog *audit.Logger, trustProxy bool) http.HandlerFunc {
	logger = logger.With("component", "auth")
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		err := httputil.DecodeJSON(r, &req)
		if err == nil {
			switch {
			case req.Username == "":
				err = httputil.MissingField("username")
			case req.Password == "":
				err = httputil.MissingField("password")
			}
		}

		ip := httputil.ClientIP(r, trustProxy)
		success := err == nil
		metrics.IncLoginAttempt(success)
		logger.Info("login attempt", "username", req.Username, "remote_ip", ip, "success", success)

		if aerr := auditLog.Log(r.Context(), audit.Entry{
			Kind:     audit.KindLogin,
			ClientIP: ip,
			Username: req.Username,
			Success:  success,
		}); aerr != nil {
			logger.Warn("audit write failed", "error", aerr)
		}

		if !success {
			logger.Debug("login rejected", "reason", err)
			httputil.WriteJSON(w, http.StatusUnauthorized, loginResponse{Success: false})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, loginResponse{Success: true})
	}
}
