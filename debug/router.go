package debug

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gamelink/logger"
	"gamelink/metrics"
	"gamelink/session"
)

// Sources 调试接口读取的数据源；为 nil 的项对应接口返回 404
type Sources struct {
	Metrics *metrics.Counters
	// Game/Mahjong 返回当前快照，没有时 ok 为 false
	Game    func() (any, bool)
	Mahjong func() (any, bool)
	// Session 非空时 /state 下的接口要求已登录
	Session *session.Store
	Log     *zap.SugaredLogger
}

// NewRouter 本地调试接口
//
//	GET /healthz        存活检查
//	GET /metrics        连接计数
//	GET /state/game     当前棋盘游戏快照
//	GET /state/mahjong  当前麻将快照
func NewRouter(src Sources) http.Handler {
	log := logger.OrNop(src.Log)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if src.Metrics == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, log, src.Metrics.Snapshot())
	})

	r.Route("/state", func(r chi.Router) {
		r.Use(requireLogin(src.Session, log))
		r.Get("/game", snapshotHandler(src.Game, log))
		r.Get("/mahjong", snapshotHandler(src.Mahjong, log))
	})
	return r
}

func requireLogin(s *session.Store, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s != nil {
				if err := session.Guard(s, r.URL.Path); err != nil {
					log.Debugw("state request rejected", "path", r.URL.Path, "error", err)
					http.Error(w, err.Error(), http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func snapshotHandler(fn func() (any, bool), log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fn == nil {
			http.NotFound(w, r)
			return
		}
		v, ok := fn()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, log, v)
	}
}

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("encode response", "error", err)
	}
}
