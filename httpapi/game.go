package httpapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"gamelink/game"
)

func (c *Client) CreateGame(ctx context.Context, req game.CreateRequest) (*game.Info, error) {
	var g game.Info
	if err := c.post(ctx, "/game/create", req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) UpdateTaskPositions(ctx context.Context, gameID int64, positions []int) (*game.Info, error) {
	var g game.Info
	if err := c.put(ctx, fmt.Sprintf("/game/%d/task-positions", gameID), positions, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) JoinGame(ctx context.Context, gameCode string) (*game.Info, error) {
	var g game.Info
	if err := c.post(ctx, "/game/join", map[string]string{"gameCode": gameCode}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) GetGameDetail(ctx context.Context, gameID int64) (*game.Info, error) {
	var g game.Info
	if err := c.get(ctx, fmt.Sprintf("/game/%d", gameID), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetUserGames 我的游戏列表；status 为 0 表示不过滤
func (c *Client) GetUserGames(ctx context.Context, status game.Status, pageNum, pageSize int) (*game.Page, error) {
	q := url.Values{}
	if status != 0 {
		q.Set("status", strconv.Itoa(int(status)))
	}
	if pageNum > 0 {
		q.Set("pageNum", strconv.Itoa(pageNum))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	path := "/game/list"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var p game.Page
	if err := c.get(ctx, path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CancelGame(ctx context.Context, gameID int64) error {
	return c.post(ctx, fmt.Sprintf("/game/%d/cancel", gameID), nil, nil)
}

func (c *Client) ForceEndGame(ctx context.Context, gameID int64) error {
	return c.post(ctx, fmt.Sprintf("/game/%d/force-end", gameID), nil, nil)
}

func (c *Client) CheckTurn(ctx context.Context, gameID int64) (bool, error) {
	var mine bool
	err := c.get(ctx, fmt.Sprintf("/game/%d/turn", gameID), &mine)
	return mine, err
}

// Heartbeat REST 心跳，WebSocket 不可用时使用
func (c *Client) Heartbeat(ctx context.Context, gameID int64) error {
	return c.post(ctx, fmt.Sprintf("/game/%d/heartbeat", gameID), nil, nil)
}
