package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const serviceName = "Scanstation"

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start resumes the station.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop pauses the station.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Enter reports handle arriving in the scan zone.
func (c *Client) Enter(handle string, attrs map[string]string) (*ActionResponse, error) {
	return call[ActionResponse](c, "Enter", EnterRequest{Handle: handle, Attrs: attrs})
}

// Exit reports handle leaving the scan zone.
func (c *Client) Exit(handle string) (*ActionResponse, error) {
	return call[ActionResponse](c, "Exit", ExitRequest{Handle: handle})
}

// Dispose reports handle entering (or with leave, leaving) the disposal zone.
func (c *Client) Dispose(handle string, leave bool) (*ActionResponse, error) {
	return call[ActionResponse](c, "Dispose", DisposeRequest{Handle: handle, Leave: leave})
}

// Forget drops a remembered handle.
func (c *Client) Forget(handle string) (*ActionResponse, error) {
	return call[ActionResponse](c, "Forget", ForgetRequest{Handle: handle})
}

// Reset clears the station.
func (c *Client) Reset() (*ActionResponse, error) {
	return call[ActionResponse](c, "Reset", ResetRequest{})
}

// History lists recorded scan outcomes.
func (c *Client) History(req HistoryRequest) (*HistoryResponse, error) {
	return call[HistoryResponse](c, "History", req)
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification publishes a test notification through the daemon.
func (c *Client) TestNotification() (*TestNotifyResponse, error) {
	return call[TestNotifyResponse](c, "TestNotification", TestNotifyRequest{})
}
