package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/akyaiy/verusgate/internal/server/rpc"
)

var (
	// ErrTransport covers everything between sending the request and reading the reply.
	ErrTransport = errors.New("backend transport failure")
	// ErrDecode is returned when the backend reply is not a JSON-RPC response.
	ErrDecode = errors.New("backend reply cannot be decoded")
)

// ClientOptions configures the connection to the node.
type ClientOptions struct {
	URL      string
	User     string
	Password string
	// Timeout bounds a whole backend call. Zero leaves it to the transport.
	Timeout time.Duration
	// Transport is shared by every client built from these options; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client speaks the node's JSON-RPC 1.0 dialect over HTTP with basic auth.
type Client struct {
	url      string
	user     string
	password string
	http     *http.Client
	nextID   atomic.Uint64
}

type backendRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type backendResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
	ID     json.RawMessage `json:"id"`
}

type backendError struct {
	Code    *int    `json:"code"`
	Message *string `json:"message"`
}

func NewClient(o *ClientOptions) (*Client, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: want http(s)://host[:port]", o.URL)
	}
	transport := o.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		url:      o.URL,
		user:     o.User,
		password: o.Password,
		http:     &http.Client{Timeout: o.Timeout, Transport: transport},
	}, nil
}

// Call issues exactly one backend request. A well-formed error reported by the
// node is returned as *rpc.Error; other failures wrap ErrTransport or ErrDecode.
func (c *Client) Call(ctx context.Context, method string, params []json.RawMessage) (json.RawMessage, error) {
	if params == nil {
		params = []json.RawMessage{}
	}
	id := c.nextID.Add(1)
	body, err := json.Marshal(&backendRequest{
		JSONRPC: "1.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrDecode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read reply: %v", ErrTransport, err)
	}

	// bitcoind-family nodes report RPC errors with HTTP 404/500 and a normal body,
	// so the body is inspected before the status code
	var reply *backendResponse
	if err := json.Unmarshal(data, &reply); err != nil || reply == nil || !sameID(reply.ID, id) {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
		}
		if err == nil {
			err = fmt.Errorf("reply does not answer request id %d", id)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if len(reply.Error) > 0 && string(reply.Error) != "null" {
		var be backendError
		if err := json.Unmarshal(reply.Error, &be); err != nil || be.Code == nil || be.Message == nil {
			return nil, fmt.Errorf("%w: malformed error object %s", ErrDecode, reply.Error)
		}
		return nil, &rpc.Error{Code: *be.Code, Message: *be.Message}
	}

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	if len(reply.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return reply.Result, nil
}

func sameID(raw json.RawMessage, id uint64) bool {
	var got uint64
	return json.Unmarshal(raw, &got) == nil && got == id
}
