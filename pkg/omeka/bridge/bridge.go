// Package bridge reaches Omeka S internals that the REST API does not
// expose by running an embedded PHP script inside the installation.
//
// Each call starts one PHP process:
//
//	OMEKA_ROOT=<public dir> php bridge.php <op> < request.json
//
// and reads a {"ok", "result", "errors"} envelope from stdout.
package bridge

import (
	"bytes"
	"context"
	_ "embed"
	stdjson "encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
)

//go:embed php/bridge.php
var script []byte

// Operation names understood by bridge.php
const (
	OpStatus           = "status"
	OpInstall          = "install"
	OpModuleGet        = "module.get"
	OpModuleInstall    = "module.install"
	OpVocabularyImport = "vocabulary.import"
	OpAuthKey          = "auth.key"
)

// Response is the envelope written by bridge.php
type Response struct {
	OK     bool               `json:"ok"`
	Result stdjson.RawMessage `json:"result"`
	Errors []string           `json:"errors"`
}

// CommandFunc builds the process for one call
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Client runs bridge operations. It implements the RDF importer and
// authenticator collaborators directly; Installer and Modules return the
// other two.
type Client struct {
	php     string
	script  string
	root    string
	command CommandFunc
	logger  zerolog.Logger

	scriptOnce sync.Once
	scriptErr  error
	tempDir    string
}

var (
	_ omeka.Installer      = (*Installer)(nil)
	_ omeka.ModuleRegistry = (*ModuleRegistry)(nil)
	_ omeka.RdfImporter    = (*Client)(nil)
	_ omeka.Authenticator  = (*Client)(nil)
)

// Option configures a Client
type Option func(*Client)

// WithScript uses an existing bridge script instead of the embedded one
func WithScript(path string) Option {
	return func(c *Client) { c.script = path }
}

// WithCommand replaces exec.CommandContext
func WithCommand(fn CommandFunc) Option {
	return func(c *Client) { c.command = fn }
}

// New creates a bridge client running php against the installation at
// publicDir
func New(php, publicDir string, opts ...Option) *Client {
	if php == "" {
		php = "php"
	}
	c := &Client{
		php:     php,
		root:    publicDir,
		command: exec.CommandContext,
		logger:  logging.GetLogger("omeka.bridge"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close removes the extracted bridge script
func (c *Client) Close() error {
	if c.tempDir == "" {
		return nil
	}
	return os.RemoveAll(c.tempDir)
}

func (c *Client) scriptPath() (string, error) {
	c.scriptOnce.Do(func() {
		if c.script != "" {
			return
		}
		dir, err := os.MkdirTemp("", "omeka-dist-bridge-")
		if err != nil {
			c.scriptErr = err
			return
		}
		path := filepath.Join(dir, "bridge.php")
		if err := os.WriteFile(path, script, 0600); err != nil {
			_ = os.RemoveAll(dir)
			c.scriptErr = err
			return
		}
		c.tempDir = dir
		c.script = path
	})
	return c.script, c.scriptErr
}

// Call runs one operation. A response with ok=false is returned together
// with an ErrBridge error carrying the reported messages.
func (c *Client) Call(ctx context.Context, op string, request interface{}) (*Response, error) {
	path, err := c.scriptPath()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrBridge, "failed to prepare bridge script")
	}

	if request == nil {
		request = struct{}{}
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrBridge, "%s: encode request", op)
	}

	cmd := c.command(ctx, c.php, path, op)
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(env, "OMEKA_ROOT="+c.root)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().Str("op", op).Msg("Running bridge operation")
	runErr := cmd.Run()

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		if runErr != nil {
			return nil, errors.Wrapf(runErr, errors.ErrBridge, "%s: %s", op, firstLine(stderr.String(), stdout.String()))
		}
		return nil, errors.Wrapf(err, errors.ErrBridge, "%s: malformed bridge response", op)
	}

	if !response.OK {
		msg := strings.Join(response.Errors, "; ")
		if msg == "" {
			msg = "operation failed"
		}
		return &response, errors.Newf(errors.ErrBridge, "%s: %s", op, msg)
	}
	return &response, nil
}

func firstLine(candidates ...string) string {
	for _, s := range candidates {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			return s[:i]
		}
		return s
	}
	return "bridge process failed"
}

func (c *Client) decode(op string, response *Response, out interface{}) error {
	if len(response.Result) == 0 || string(response.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(response.Result, out); err != nil {
		return errors.Wrapf(err, errors.ErrBridge, "%s: decode result", op)
	}
	return nil
}
