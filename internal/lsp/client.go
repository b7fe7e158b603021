// Package lsp connects to a language-server backend over JSON-RPC. It
// carries conversation requests out and client tool calls in.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/joss/pairkit/internal/conversation"
	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/tool"
)

// codeRequestCancelled is the LSP RequestCancelled error code
const codeRequestCancelled jsonrpc2.Code = -32800

const shutdownTimeout = 3 * time.Second

// Options wires a client to the local tool dispatcher
type Options struct {
	Tools       *tool.Registry
	Environment tool.Environment
	History     history.Updater
	// OnProgressEnd is called with the token of every finished work-done
	// progress.
	OnProgressEnd func(token string)
	ClientName    string
	ClientVersion string
}

// Client is one backend connection. It implements conversation.Connection.
type Client struct {
	conn jsonrpc2.Conn
	cmd  *exec.Cmd
	opts Options
	log  *logging.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	ctx       context.Context
	cancel    context.CancelFunc
}

var _ conversation.Connection = (*Client)(nil)

// NewClient runs the JSON-RPC protocol over rwc. The client owns rwc.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, opts Options) *Client {
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		conn:   jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		opts:   opts,
		log:    logging.New("lsp"),
		ctx:    ctx,
		cancel: cancel,
	}
	if opts.Environment != nil {
		c.log = c.log.WithWorkspace(opts.Environment.WorkspacePath())
	}
	c.conn.Go(ctx, c.handle)
	return c
}

type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	return errors.Join(s.WriteCloser.Close(), s.ReadCloser.Close())
}

// Dial starts command and speaks JSON-RPC over its stdin and stdout
func Dial(ctx context.Context, command string, args []string, opts Options) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	c := NewClient(ctx, stdio{ReadCloser: stdout, WriteCloser: stdin}, opts)
	c.cmd = cmd
	c.log.Info("lsp.started", map[string]any{"command": command, "pid": cmd.Process.Pid})
	return c, nil
}

// Initialize performs the LSP handshake and registers the client tools
func (c *Client) Initialize(ctx context.Context, rootPath string, folders []domain.WorkspaceFolder) error {
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   protocol.DocumentURI(uri.File(rootPath)),
		ClientInfo: &protocol.ClientInfo{
			Name:    c.opts.ClientName,
			Version: c.opts.ClientVersion,
		},
	}
	for _, f := range folders {
		params.WorkspaceFolders = append(params.WorkspaceFolders, protocol.WorkspaceFolder{URI: f.URI, Name: f.Name})
	}

	var result json.RawMessage
	if _, err := c.conn.Call(ctx, MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.conn.Notify(ctx, MethodInitialized, &protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return c.RegisterTools(ctx)
}

// RegisterTools advertises the dispatcher's tools to the backend
func (c *Client) RegisterTools(ctx context.Context) error {
	if c.opts.Tools == nil {
		return nil
	}
	var result json.RawMessage
	if _, err := c.conn.Call(ctx, MethodRegisterTools, registerToolsWire{Tools: c.opts.Tools.All()}, &result); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	return nil
}

func (c *Client) CreateConversation(ctx context.Context, params conversation.CreateParams) (conversation.CreateResult, error) {
	var res conversation.CreateResult
	if _, err := c.conn.Call(ctx, MethodConversationCreate, encodeCreate(params), &res); err != nil {
		return conversation.CreateResult{}, err
	}
	return res, nil
}

func (c *Client) CreateTurn(ctx context.Context, params conversation.TurnParams) (conversation.CreateResult, error) {
	var res conversation.CreateResult
	if _, err := c.conn.Call(ctx, MethodConversationTurn, encodeTurn(params), &res); err != nil {
		return conversation.CreateResult{}, err
	}
	return res, nil
}

func (c *Client) CancelProgress(ctx context.Context, token string) error {
	return c.conn.Notify(ctx, MethodProgressCancel, cancelWire{Token: token})
}

func (c *Client) RateConversation(ctx context.Context, turnID string, rating domain.ConversationRating) error {
	var res json.RawMessage
	_, err := c.conn.Call(ctx, MethodConversationRating, ratingWire{TurnID: turnID, Rating: rating}, &res)
	return err
}

func (c *Client) CopyCode(ctx context.Context, req domain.CopyCodeRequest) error {
	var res json.RawMessage
	_, err := c.conn.Call(ctx, MethodConversationCopyCode, req, &res)
	return err
}

func (c *Client) Templates(ctx context.Context) ([]domain.ChatTemplate, error) {
	var out []domain.ChatTemplate
	if _, err := c.conn.Call(ctx, MethodConversationTemplates, struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Models(ctx context.Context) ([]domain.Model, error) {
	var out []domain.Model
	if _, err := c.conn.Call(ctx, MethodModels, struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Agents(ctx context.Context) ([]domain.ChatAgent, error) {
	var out []domain.ChatAgent
	if _, err := c.conn.Call(ctx, MethodConversationAgents, struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) NotifyDidChangeWatchedFiles(ctx context.Context, event domain.WatchedFilesEvent) error {
	return c.conn.Notify(ctx, MethodDidChangeWatchedFiles, event)
}

// Done is closed when the connection is gone
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

func (c *Client) alive() bool {
	select {
	case <-c.conn.Done():
		return false
	default:
		return true
	}
}

func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case MethodInvokeClientTool:
		return c.invokeClientTool(ctx, reply, req)
	case MethodProgress:
		var p progressWire
		if err := json.Unmarshal(req.Params(), &p); err == nil && p.Value.Kind == "end" && c.opts.OnProgressEnd != nil {
			c.opts.OnProgressEnd(p.Token)
		}
		return reply(ctx, nil, nil)
	}
	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

// invokeClientTool runs the tool and replies from a goroutine so the read
// loop keeps serving other messages while the tool runs. The reply waits
// for the tool or for the request or client context to end.
func (c *Client) invokeClientTool(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var call domain.ToolCallRequest
	if err := json.Unmarshal(req.Params(), &call); err != nil {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
	}
	if c.opts.Tools == nil {
		return reply(ctx, encodeToolResult(tool.ErrorResult(call.ToolCallID, errors.New("no tools registered"))), nil)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.opts.Tools.Forget(call.ToolCallID)

		callCtx, cancel := context.WithCancel(logging.WithCorrelation(ctx, call.ToolCallID))
		defer cancel()
		stop := context.AfterFunc(c.ctx, cancel)
		defer stop()

		completion := c.opts.Tools.Dispatch(callCtx, &call, c.opts.History, c.opts.Environment)
		res, err := completion.Wait(callCtx)
		if err != nil {
			c.log.Warn("lsp.tool_reply_cancelled", map[string]any{"tool_call_id": call.ToolCallID}, err)
			_ = reply(context.Background(), nil, jsonrpc2.NewError(codeRequestCancelled, "tool call cancelled"))
			return
		}
		if err := reply(c.ctx, encodeToolResult(res), nil); err != nil {
			c.log.Warn("lsp.tool_reply_failed", map[string]any{"tool_call_id": call.ToolCallID}, err)
		}
	}()
	return nil
}

// Close shuts the connection and, for dialed clients, the server process
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.cmd != nil && c.alive() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if _, err := c.conn.Call(ctx, MethodShutdown, nil, nil); err == nil {
				_ = c.conn.Notify(ctx, MethodExit, nil)
			}
			cancel()
		}

		c.cancel()
		c.closeErr = c.conn.Close()
		<-c.conn.Done()
		c.wg.Wait()

		if c.cmd != nil {
			done := make(chan error, 1)
			go func() { done <- c.cmd.Wait() }()
			select {
			case <-done:
			case <-time.After(shutdownTimeout):
				_ = c.cmd.Process.Kill()
				<-done
			}
		}
		c.log.Info("lsp.closed", nil)
	})
	return c.closeErr
}
