package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config 客户端运行配置，全部来自环境变量（可由 .env 预置）
type Config struct {
	APIURL      string
	WSURL       string
	HTTPTimeout time.Duration

	// 棋盘游戏连接
	StompHeartbeat    time.Duration
	GameHeartbeat     time.Duration
	ReconnectDelay    time.Duration
	ReconnectAttempts int

	// 麻将连接
	MahjongHeartbeat      time.Duration
	MahjongReconnectDelay time.Duration

	SessionDir string
	RedisAddr  string

	LogFile    string
	LogLevel   string
	LogConsole bool
	DebugAddr  string
}

// Default 返回不读环境变量的默认配置
func Default() Config {
	return Config{
		APIURL:                "http://localhost:8080/api",
		WSURL:                 "ws://localhost:8080/ws/game/websocket",
		HTTPTimeout:           30 * time.Second,
		StompHeartbeat:        10 * time.Second,
		GameHeartbeat:         30 * time.Second,
		ReconnectDelay:        3 * time.Second,
		ReconnectAttempts:     5,
		MahjongHeartbeat:      4 * time.Second,
		MahjongReconnectDelay: 5 * time.Second,
		SessionDir:            ".gamelink",
		LogFile:               "gamelink.log",
		LogLevel:              "info",
	}
}

// LoadDotEnv 读取 .env 文件；文件不存在不算错误，已有环境变量不会被覆盖
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load 从环境变量构建配置
func Load() (Config, error) {
	c := Default()
	var err error

	c.APIURL = getString("GAMELINK_API_URL", c.APIURL)
	c.WSURL = getString("GAMELINK_WS_URL", c.WSURL)
	c.SessionDir = getString("GAMELINK_SESSION_DIR", c.SessionDir)
	c.RedisAddr = getString("GAMELINK_REDIS_ADDR", c.RedisAddr)
	c.LogFile = getString("GAMELINK_LOG_FILE", c.LogFile)
	c.LogLevel = getString("GAMELINK_LOG_LEVEL", c.LogLevel)
	c.DebugAddr = getString("GAMELINK_DEBUG_ADDR", c.DebugAddr)

	if c.HTTPTimeout, err = getDuration("GAMELINK_HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return Config{}, err
	}
	if c.StompHeartbeat, err = getDuration("GAMELINK_STOMP_HEARTBEAT", c.StompHeartbeat); err != nil {
		return Config{}, err
	}
	if c.GameHeartbeat, err = getDuration("GAMELINK_GAME_HEARTBEAT", c.GameHeartbeat); err != nil {
		return Config{}, err
	}
	if c.ReconnectDelay, err = getDuration("GAMELINK_RECONNECT_DELAY", c.ReconnectDelay); err != nil {
		return Config{}, err
	}
	if c.ReconnectAttempts, err = getInt("GAMELINK_RECONNECT_ATTEMPTS", c.ReconnectAttempts); err != nil {
		return Config{}, err
	}
	if c.MahjongHeartbeat, err = getDuration("GAMELINK_MAHJONG_HEARTBEAT", c.MahjongHeartbeat); err != nil {
		return Config{}, err
	}
	if c.MahjongReconnectDelay, err = getDuration("GAMELINK_MAHJONG_RECONNECT_DELAY", c.MahjongReconnectDelay); err != nil {
		return Config{}, err
	}
	if c.LogConsole, err = getBool("GAMELINK_LOG_CONSOLE", c.LogConsole); err != nil {
		return Config{}, err
	}

	// 棋盘游戏的重连次数必须有上限，0 在 realtime 中表示不限次数
	if c.ReconnectAttempts < 1 {
		return Config{}, errConversionFailed("GAMELINK_RECONNECT_ATTEMPTS", "positive int")
	}
	return c, nil
}
