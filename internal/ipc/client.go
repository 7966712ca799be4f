package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

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

// Ping checks daemon liveness.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("SymSync.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("SymSync.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("SymSync.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkCreate registers a new configuration.
func (c *Client) LinkCreate(name string) (*LinkCreateResponse, error) {
	var resp LinkCreateResponse
	if err := c.client.Call("SymSync.LinkCreate", LinkCreateRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkList returns all configurations.
func (c *Client) LinkList() (*LinkListResponse, error) {
	var resp LinkListResponse
	if err := c.client.Call("SymSync.LinkList", LinkListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkShow returns a single configuration.
func (c *Client) LinkShow(id string) (*LinkShowResponse, error) {
	var resp LinkShowResponse
	if err := c.client.Call("SymSync.LinkShow", LinkShowRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkRename changes a configuration's display name.
func (c *Client) LinkRename(id, name string) error {
	var resp LinkRenameResponse
	return c.client.Call("SymSync.LinkRename", LinkRenameRequest{ID: id, Name: name}, &resp)
}

// LinkSetTarget points a stopped configuration at a target directory.
func (c *Client) LinkSetTarget(id, target string) error {
	var resp LinkSetTargetResponse
	return c.client.Call("SymSync.LinkSetTarget", LinkSetTargetRequest{ID: id, Target: target}, &resp)
}

// LinkSetInterval adjusts the reconciliation interval in seconds.
func (c *Client) LinkSetInterval(id string, seconds int) error {
	var resp LinkSetIntervalResponse
	return c.client.Call("SymSync.LinkSetInterval", LinkSetIntervalRequest{ID: id, Seconds: seconds}, &resp)
}

// LinkAddSource attaches a source directory.
func (c *Client) LinkAddSource(id, source string) error {
	var resp LinkAddSourceResponse
	return c.client.Call("SymSync.LinkAddSource", LinkAddSourceRequest{ID: id, Source: source}, &resp)
}

// LinkRemoveSource detaches a source directory.
func (c *Client) LinkRemoveSource(id, source string, removeLinks bool) error {
	var resp LinkRemoveSourceResponse
	req := LinkRemoveSourceRequest{ID: id, Source: source, RemoveLinks: removeLinks}
	return c.client.Call("SymSync.LinkRemoveSource", req, &resp)
}

// LinkStart activates a configuration.
func (c *Client) LinkStart(id string) (*LinkStartResponse, error) {
	var resp LinkStartResponse
	if err := c.client.Call("SymSync.LinkStart", LinkStartRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkStop deactivates a configuration.
func (c *Client) LinkStop(id string) error {
	var resp LinkStopResponse
	return c.client.Call("SymSync.LinkStop", LinkStopRequest{ID: id}, &resp)
}

// LinkDelete removes a configuration.
func (c *Client) LinkDelete(id string, removeLinks bool) error {
	var resp LinkDeleteResponse
	return c.client.Call("SymSync.LinkDelete", LinkDeleteRequest{ID: id, RemoveLinks: removeLinks}, &resp)
}

// LinkLogs returns a configuration's status log, oldest first.
func (c *Client) LinkLogs(id string) (*LinkLogsResponse, error) {
	var resp LinkLogsResponse
	if err := c.client.Call("SymSync.LinkLogs", LinkLogsRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns daemon log lines from the given offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("SymSync.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rescan forces an immediate reconciliation pass for one configuration.
func (c *Client) Rescan(id string) error {
	var resp RescanResponse
	return c.client.Call("SymSync.Rescan", RescanRequest{ID: id}, &resp)
}
