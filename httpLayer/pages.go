package httpLayer

import (
	"net/http"
)

const (
	SuccessPage = "<h1>success</h1>"

	NotFoundBody = "error"

	HealthzPath = "/healthz"
)

// WriteSuccess 回应根路径, 表示服务在运行
func WriteSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(SuccessPage))
}

func WriteNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(NotFoundBody))
}

func WriteHealthz(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// IsWebsocketUpgrade 判断请求是否要升级为 websocket
func IsWebsocketUpgrade(r *http.Request) bool {
	return headerContainsToken(r.Header, "Connection", "upgrade") &&
		headerContainsToken(r.Header, "Upgrade", "websocket")
}
