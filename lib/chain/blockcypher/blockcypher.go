// Package blockcypher implements the chain source interface for BlockCypher-compatible explorer APIs.
package blockcypher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tarancss/simpliance/lib/chain"
)

const requestTimeout = 10 * time.Second

// Client implements a connection to a BlockCypher-compatible API, ie. https://api.blockcypher.com/v1/btc/main.
type Client struct {
	c     *resty.Client
	token string
}

// apiError is the error payload the explorer replies with non-2xx status codes.
type apiError struct {
	Error string `json:"error"`
}

// New returns a Client for the explorer API rooted at url. token is optional and appended to every request when
// informed.
func New(url, token string) *Client {
	c := resty.New().
		SetBaseURL(url).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")

	return &Client{c: c, token: token}
}

// AddressFull returns the live balance and transaction summaries of an address.
func (c *Client) AddressFull(ctx context.Context, address string) (chain.AddressInfo, error) {
	var info chain.AddressInfo

	var apiErr apiError

	req := c.c.R().SetContext(ctx).SetResult(&info).SetError(&apiErr)
	if c.token != "" {
		req.SetQueryParam("token", c.token)
	}

	resp, err := req.Get("/addrs/" + address + "/full")
	if err != nil {
		return info, fmt.Errorf("cannot get address %s from explorer: %w", address, err)
	}

	return info, c.checkResponse(resp, apiErr)
}

// Transaction returns the live details of a transaction by hash.
func (c *Client) Transaction(ctx context.Context, hash string) (chain.TxInfo, error) {
	var tx chain.TxInfo

	var apiErr apiError

	req := c.c.R().SetContext(ctx).SetResult(&tx).SetError(&apiErr)
	if c.token != "" {
		req.SetQueryParam("token", c.token)
	}

	resp, err := req.Get("/txs/" + hash)
	if err != nil {
		return tx, fmt.Errorf("cannot get transaction %s from explorer: %w", hash, err)
	}

	return tx, c.checkResponse(resp, apiErr)
}

// checkResponse maps explorer error replies to the chain error codes.
func (c *Client) checkResponse(resp *resty.Response, apiErr apiError) error {
	if resp.StatusCode() == http.StatusNotFound {
		return chain.ErrNotFound
	}

	if resp.IsError() {
		if apiErr.Error != "" {
			return fmt.Errorf("%w: %s", chain.ErrUpstream, apiErr.Error)
		}

		return fmt.Errorf("%w: %s", chain.ErrUpstream, resp.Status())
	}

	return nil
}
