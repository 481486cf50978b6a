package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"gamelink/mahjong"
)

func (c *Client) mahjongGame(ctx context.Context, method, path string, body any) (*mahjong.Game, error) {
	var g *mahjong.Game
	if err := c.do(ctx, method, path, body, &g); err != nil {
		return nil, err
	}
	return g, nil
}

func (c *Client) CreateMahjong(ctx context.Context, req mahjong.CreateRequest) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodPost, "/mahjong/create", req)
}

func (c *Client) JoinMahjong(ctx context.Context, gameCode string) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodPost, "/mahjong/join", map[string]string{"gameCode": gameCode})
}

func (c *Client) LeaveMahjong(ctx context.Context, gameID int64) error {
	return c.post(ctx, fmt.Sprintf("/mahjong/%d/leave", gameID), nil, nil)
}

func (c *Client) StartMahjong(ctx context.Context, gameID int64) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodPost, fmt.Sprintf("/mahjong/%d/start", gameID), nil)
}

func (c *Client) GetMahjong(ctx context.Context, gameID int64) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodGet, fmt.Sprintf("/mahjong/%d", gameID), nil)
}

func (c *Client) GetMahjongByCode(ctx context.Context, gameCode string) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodGet, "/mahjong/code/"+url.PathEscape(gameCode), nil)
}

func (c *Client) MahjongAction(ctx context.Context, gameID int64, req mahjong.ActionRequest) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodPost, fmt.Sprintf("/mahjong/%d/action", gameID), req)
}

func (c *Client) MyMahjongGames(ctx context.Context) ([]mahjong.Game, error) {
	var games []mahjong.Game
	if err := c.get(ctx, "/mahjong/my-games", &games); err != nil {
		return nil, err
	}
	return games, nil
}

// ActiveMahjong 当前进行中的对局，没有时返回 nil
func (c *Client) ActiveMahjong(ctx context.Context) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodGet, "/mahjong/active", nil)
}

func (c *Client) NextMahjongRound(ctx context.Context, gameID int64) (*mahjong.Game, error) {
	return c.mahjongGame(ctx, http.MethodPost, fmt.Sprintf("/mahjong/%d/next-round", gameID), nil)
}
