package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gamelink/config"
	"gamelink/debug"
	"gamelink/game"
	"gamelink/httpapi"
	"gamelink/logger"
	"gamelink/mahjong"
	"gamelink/metrics"
	"gamelink/protocol"
	"gamelink/realtime"
	"gamelink/session"
)

type options struct {
	login     string
	gameID    int64
	joinCode  string
	mahjongID int64
	debugAddr string
	envFile   string
}

// gamelink 入口：登录、进入房间并打印实时事件，Ctrl+C 退出
func main() {
	var opts options
	flag.StringVar(&opts.login, "login", "", "login before entering a room, e.g. alice:secret")
	flag.Int64Var(&opts.gameID, "game", 0, "board game id to enter")
	flag.StringVar(&opts.joinCode, "join", "", "board game code to join and enter")
	flag.Int64Var(&opts.mahjongID, "mahjong", 0, "mahjong game id to enter")
	flag.StringVar(&opts.debugAddr, "debug", "", "debug http listen address, e.g. :6060")
	flag.StringVar(&opts.envFile, "env", ".env", "dotenv file")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "gamelink:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.debugAddr != "" {
		cfg.DebugAddr = opts.debugAddr
	}
	if err := logger.Init(cfg.LogFile, cfg.LogLevel, cfg.LogConsole); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	sess, err := session.Open(ctx, storage)
	if err != nil {
		return err
	}
	api := httpapi.New(cfg.APIURL, sess,
		httpapi.WithTimeout(cfg.HTTPTimeout),
		httpapi.WithLogger(logger.Named("http")),
		httpapi.WithUnauthorizedHandler(func() {
			printNotice("登录已失效，请使用 -login 重新登录")
		}),
	)

	if opts.login != "" {
		user, pass, ok := strings.Cut(opts.login, ":")
		if !ok {
			return fmt.Errorf("-login expects user:password")
		}
		p, err := api.Login(ctx, user, pass)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		log.Infow("logged in", "user", p.Username, "userID", p.UserID)
	} else if sess.Expired(time.Now()) {
		printNotice("登录已过期，请使用 -login 重新登录")
	}

	counters := &metrics.Counters{}

	gameSocket := realtime.NewGameSocket(
		&realtime.StompDialer{URL: cfg.WSURL, Heartbeat: cfg.StompHeartbeat, Log: logger.Named("stomp")},
		realtime.WithLogger(logger.Named("realtime")),
		realtime.WithMetrics(counters),
		realtime.WithReconnect(cfg.ReconnectAttempts, cfg.ReconnectDelay),
		realtime.WithHeartbeat(cfg.GameHeartbeat),
	)
	games := game.NewStore(api, gameSocket, sess,
		game.WithLogger(logger.Named("game")),
		game.OnNotice(func(n game.Notice) { printNotice(n.Message) }),
	)

	mahjongSocket := realtime.NewMahjongSocket(
		&realtime.StompDialer{URL: cfg.WSURL, Heartbeat: cfg.MahjongHeartbeat, Log: logger.Named("stomp")},
		realtime.WithLogger(logger.Named("realtime")),
		realtime.WithMetrics(counters),
		realtime.WithReconnect(0, cfg.MahjongReconnectDelay),
	)
	tables := mahjong.NewStore(api,
		mahjong.WithIdentity(sess),
		mahjong.WithLogger(logger.Named("mahjong")),
		mahjong.OnNotice(printNotice),
	)

	var srv *http.Server
	if cfg.DebugAddr != "" {
		srv = startDebug(cfg.DebugAddr, debug.Sources{
			Metrics: counters,
			Game: func() (any, bool) {
				st := games.Snapshot()
				return st, st.Game != nil
			},
			Mahjong: func() (any, bool) {
				g := tables.CurrentGame()
				return g, g != nil
			},
			Session: sess,
			Log:     logger.Named("debug"),
		}, log)
	}

	wantRoom := opts.gameID != 0 || opts.joinCode != "" || opts.mahjongID != 0
	if wantRoom {
		if err := session.Guard(sess, "/game"); err != nil {
			return fmt.Errorf("%w: run with -login user:password", err)
		}
	}

	if err := enterBoardGame(ctx, games, opts); err != nil {
		return err
	}
	if opts.mahjongID != 0 {
		if err := enterMahjong(ctx, tables, mahjongSocket, sess, opts.mahjongID, log); err != nil {
			return err
		}
	}
	if !wantRoom && srv == nil {
		printNotice("没有指定房间，退出")
		return nil
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	games.LeaveGameRoom()
	games.DisconnectSocket()
	mahjongSocket.Disconnect()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

// openStorage 配置了 Redis 时会话存 Redis，否则存本地目录
func openStorage(ctx context.Context, cfg config.Config) (session.Storage, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return session.NewRedisStorage(client), func() { _ = client.Close() }, nil
	}
	files, err := session.NewFileStorage(cfg.SessionDir)
	if err != nil {
		return nil, nil, err
	}
	return files, func() {}, nil
}

func startDebug(addr string, src debug.Sources, log *zap.SugaredLogger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: debug.NewRouter(src), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("debug listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("debug listen: %v", err)
		}
	}()
	return srv
}

func enterBoardGame(ctx context.Context, games *game.Store, opts options) error {
	gameID := opts.gameID
	if opts.joinCode != "" {
		g, err := games.JoinGame(ctx, opts.joinCode)
		if err != nil {
			return fmt.Errorf("join %s: %w", opts.joinCode, err)
		}
		gameID = g.ID
	}
	if gameID == 0 {
		return nil
	}
	if err := games.EnterGameRoom(ctx, gameID); err != nil {
		return fmt.Errorf("enter game %d: %w", gameID, err)
	}
	st := games.Snapshot()
	printNotice(fmt.Sprintf("已进入游戏 %s（%s），我是 %d 号玩家", st.Game.GameCode, st.Game.GameStatus, games.MyPlayerNumber()))
	return nil
}

func enterMahjong(ctx context.Context, tables *mahjong.Store, socket *realtime.MahjongSocket, sess *session.Store, gameID int64, log *zap.SugaredLogger) error {
	g, err := tables.GetGameState(ctx, gameID)
	if err != nil {
		return fmt.Errorf("mahjong %d: %w", gameID, err)
	}
	err = socket.Connect(ctx, gameID, sess.Token(), realtime.MahjongCallbacks{
		OnError: func(err error) { printNotice("麻将连接失败: " + err.Error()) },
		OnEvent: func(msg protocol.MahjongMessage, ev protocol.MahjongEvent) {
			if err := tables.HandleEvent(ctx, ev); err != nil {
				log.Warnw("mahjong event", "type", msg.Type, "error", err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("mahjong connect: %w", err)
	}
	printNotice(fmt.Sprintf("已进入麻将 %s，座位 %d", g.GameCode, g.SeatOf(sess.UserID())))
	return nil
}

func printNotice(msg string) {
	fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), msg)
}
