package realtime

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1 << 20 // 1MB
)

// wsConn 把 WebSocket 包装成字节流，供 STOMP 编解码使用
// 每次 Write 发送一条文本消息；Read 依次读取消息内容
type wsConn struct {
	ws       *websocket.Conn
	readWait time.Duration

	wmu    sync.Mutex
	reader io.Reader

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, readWait time.Duration) *wsConn {
	c := &wsConn{
		ws:       ws,
		readWait: readWait,
		done:     make(chan struct{}),
	}
	ws.SetReadLimit(maxMessageSize)
	if readWait > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(readWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(readWait))
		})
	}
	return c
}

// Read 只由一个协程调用（STOMP 读循环）
func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				c.markDone()
				return 0, err
			}
			if c.readWait > 0 {
				// 收到任何消息（包括 STOMP 心跳）都顺延读超时
				_ = c.ws.SetReadDeadline(time.Now().Add(c.readWait))
			}
			c.reader = r
		}
		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		c.markDone()
		return 0, err
	}
	return len(p), nil
}

// Close 发送关闭帧后关闭底层连接，可重复调用
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.wmu.Unlock()
		err = c.ws.Close()
		c.markDone()
	})
	return err
}

func (c *wsConn) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}
