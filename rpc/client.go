package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the ledger service of a node.
type Client struct {
	networkID string
	conn      grpc.ClientConnInterface
}

func NewClient(networkID string, conn grpc.ClientConnInterface) *Client {
	return &Client{networkID: networkID, conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]interface{}, key string) (string, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return "", err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, NetworkIDKey, c.networkID)
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return "", err
	}
	return field(resp, key), nil
}

func (c *Client) GetBalance(ctx context.Context, accountID string, symbol string) (string, error) {
	return c.invoke(ctx, "GetBalance", map[string]interface{}{"account": accountID, "asset": symbol}, "balance")
}

func (c *Client) Deposit(ctx context.Context, accountID string, symbol string, amount string) (string, error) {
	return c.invoke(ctx, "Deposit", map[string]interface{}{"account": accountID, "asset": symbol, "amount": amount}, "balance")
}

func (c *Client) Withdraw(ctx context.Context, accountID string, symbol string, amount string) (string, error) {
	return c.invoke(ctx, "Withdraw", map[string]interface{}{"account": accountID, "asset": symbol, "amount": amount}, "sent")
}

func (c *Client) WithdrawAll(ctx context.Context, accountID string, symbol string) (string, error) {
	return c.invoke(ctx, "WithdrawAll", map[string]interface{}{"account": accountID, "asset": symbol}, "sent")
}

func (c *Client) Transfer(ctx context.Context, from string, to string, symbol string, amount string) (string, error) {
	return c.invoke(ctx, "Transfer", map[string]interface{}{"from": from, "to": to, "asset": symbol, "amount": amount}, "balance")
}
