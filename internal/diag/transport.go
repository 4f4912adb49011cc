package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// maxTargetID mirrors the platform PID ceiling used to validate
// LocalExec/ShellExec target identifiers.
const maxTargetID = 4194304

// validateTargetID rejects anything that is not a positive integer below
// the platform's PID ceiling, per §4.1.
func validateTargetID(id int) error {
	if id <= 0 || id >= maxTargetID {
		return NewError(KindToolsUnavailable, fmt.Sprintf("invalid target id %d", id))
	}
	return nil
}

// ExecResult is the raw output of a successful transport call.
type ExecResult struct {
	Stdout []byte
	Stderr []byte
}

// Transport executes a named diagnostic operation against a target and
// returns a byte buffer plus success/failure within a caller-supplied
// deadline (§4.1).
type Transport interface {
	Exec(ctx context.Context, operation string, args []string) (*ExecResult, error)
	Close() error
}

// -- LocalExec ---------------------------------------------------------

// LocalExec spawns a diagnostic process on the local machine. Arguments
// are passed as distinct exec.Command parameters, never through a shell.
type LocalExec struct {
	TargetID int
}

func NewLocalExec(targetID int) (*LocalExec, error) {
	if err := validateTargetID(targetID); err != nil {
		return nil, err
	}
	return &LocalExec{TargetID: targetID}, nil
}

// Exec runs operation with args appended, respecting ctx's deadline. The
// operation name is the diagnostic tool's path or bare name (resolved via
// PATH by exec.LookPath semantics).
func (l *LocalExec) Exec(ctx context.Context, operation string, args []string) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, operation, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, NewError(KindTimeout, fmt.Sprintf("%s timed out", operation))
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, NewError(KindToolsUnavailable, fmt.Sprintf("%s not found", operation))
		}
		return nil, &Error{
			Kind:    KindTransport,
			Message: fmt.Sprintf("%s failed: %s", operation, stderr.String()),
			Cause:   err,
		}
	}
	return &ExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

func (l *LocalExec) Close() error { return nil }

// -- ShellExec -----------------------------------------------------------

// ShellExec holds an authenticated encrypted-shell session to a remote
// host. Grounded on rileyhilliard-rr/pkg/sshutil's auth precedence
// (agent, then configured key, then default key paths) and host-key
// verification via knownhosts.
type ShellExec struct {
	TargetID int

	mu     sync.Mutex
	client *ssh.Client
}

// DialShellExec authenticates a new encrypted-shell session to host:port,
// validating auth and the target id up front (Building/Authenticating
// states of C10 map onto this call).
func DialShellExec(ctx context.Context, host string, port int, user string, auth ShellAuth, targetID int) (*ShellExec, error) {
	if err := validateTargetID(targetID); err != nil {
		return nil, err
	}

	hostname, user, auth := resolveShellConfig(host, user, auth)

	cfg, err := buildShellAuthConfig(user, auth)
	if err != nil {
		return nil, err
	}

	if port == 0 {
		port = shellConfigPort(host)
	}

	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, WrapError(KindTransport, fmt.Sprintf("cannot reach %s", addr), err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, WrapError(KindAuthFailed, fmt.Sprintf("ssh handshake with %s failed", host), err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	se := &ShellExec{TargetID: targetID, client: client}
	// Authenticating: prove we can execute a trivial probe.
	if _, err := se.Exec(ctx, "true", nil); err != nil {
		client.Close()
		return nil, WrapError(KindAuthFailed, "remote probe command failed", err)
	}
	return se, nil
}

// resolveShellConfig fills in whatever the caller left unset (hostname,
// user, key path) from ~/.ssh/config, following the same Get-per-field
// lookup rileyhilliard-rr/pkg/sshutil uses. host is always treated as the
// alias to look up; an explicit HostName entry overrides the dial target,
// otherwise the alias itself is dialed.
func resolveShellConfig(host, user string, auth ShellAuth) (hostname, resolvedUser string, resolvedAuth ShellAuth) {
	hostname = host
	resolvedUser = user
	resolvedAuth = auth

	if hn, _ := ssh_config.GetStrict(host, "HostName"); hn != "" {
		hostname = hn
	}
	if resolvedUser == "" {
		if u, _ := ssh_config.GetStrict(host, "User"); u != "" {
			resolvedUser = u
		}
	}
	if resolvedAuth.Kind == AuthKey && resolvedAuth.Path == "" {
		if id, _ := ssh_config.GetStrict(host, "IdentityFile"); id != "" && id != "~/.ssh/identity" {
			resolvedAuth.Path = expandHomePath(id)
		}
	}
	return hostname, resolvedUser, resolvedAuth
}

func shellConfigPort(host string) int {
	p, _ := ssh_config.GetStrict(host, "Port")
	if port, err := strconv.Atoi(p); err == nil && port > 0 {
		return port
	}
	return 22
}

func expandHomePath(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func buildShellAuthConfig(user string, auth ShellAuth) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	if a := sshAgentAuthMethod(); a != nil {
		methods = append(methods, a)
	}

	switch auth.Kind {
	case AuthKey:
		paths := []string{}
		if auth.Path != "" {
			paths = append(paths, auth.Path)
		}
		paths = append(paths, defaultKeyPaths()...)
		for _, p := range paths {
			if m, err := keyFileAuthMethod(p, auth.Secret); err == nil {
				methods = append(methods, m)
				break
			}
		}
	case AuthPassword:
		if auth.Secret != "" {
			methods = append(methods, ssh.Password(auth.Secret))
		}
	}

	if len(methods) == 0 {
		return nil, NewError(KindAuthFailed, "no SSH authentication method available")
	}

	hostKeyCallback, err := shellHostKeyCallback()
	if err != nil {
		return nil, WrapError(KindTransport, "failed to load known_hosts", err)
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}, nil
}

func defaultKeyPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

func keyFileAuthMethod(path, passphrase string) (ssh.AuthMethod, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(raw, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(raw)
	}
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func sshAgentAuthMethod() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	client := agent.NewClient(conn)
	signers, err := client.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(client.Signers)
}

func shellHostKeyCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return ssh.InsecureIgnoreHostKey(), nil //nolint
	}
	path := filepath.Join(home, ".ssh", "known_hosts")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ssh.InsecureIgnoreHostKey(), nil //nolint
	}
	return knownhosts.New(path)
}

// quoteShellArg wraps arg in single quotes, escaping embedded single
// quotes, so the reconstructed remote command line carries the argument
// vector verbatim instead of being subject to remote word-splitting.
func quoteShellArg(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// Exec runs operation with args on the remote host. The argument vector is
// individually quoted before being joined, so it reaches the remote
// diagnostic tool exactly as LocalExec would pass it via exec.Command.
func (s *ShellExec) Exec(ctx context.Context, operation string, args []string) (*ExecResult, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil, NewError(KindDisconnected, "shell session closed")
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, WrapError(KindTransport, "failed to open ssh session", err)
	}
	defer session.Close()

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteShellArg(operation))
	for _, a := range args {
		parts = append(parts, quoteShellArg(a))
	}
	command := strings.Join(parts, " ")

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return nil, NewError(KindTimeout, fmt.Sprintf("%s timed out", operation))
	case err := <-done:
		if err != nil {
			if _, ok := err.(*ssh.ExitError); ok {
				return nil, &Error{Kind: KindTransport, Message: stderr.String(), Cause: err}
			}
			return nil, WrapError(KindTransport, "ssh exec failed", err)
		}
		return &ExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}
}

func (s *ShellExec) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// -- HttpExec --------------------------------------------------------------

// jolokiaRequest is the wire shape posted to the management bridge,
// grounded on original_source/src/jvm/jolokia/types.rs's JolokiaRequest.
type jolokiaRequest struct {
	Type      string        `json:"type"`
	MBean     string        `json:"mbean"`
	Attribute string        `json:"attribute,omitempty"`
	Operation string        `json:"operation,omitempty"`
	Arguments []interface{} `json:"arguments,omitempty"`
}

// jolokiaResponse is the wire shape received back.
type jolokiaResponse struct {
	Status    int             `json:"status"`
	Value     json.RawMessage `json:"value"`
	Timestamp uint64          `json:"timestamp"`
}

// HttpExec posts JSON-RPC-style documents to a configured management
// bridge endpoint and maintains a pooled HTTP client (§5: "HTTP must
// pool").
type HttpExec struct {
	URL      string
	AuthUser string
	AuthPass string
	HasAuth  bool

	client *http.Client
}

var sharedHTTPTransport = &http.Transport{
	MaxIdleConns:        32,
	MaxIdleConnsPerHost:  8,
	IdleConnTimeout:      90 * time.Second,
}

func NewHttpExec(url, authUser, authPass string, hasAuth bool) *HttpExec {
	return &HttpExec{
		URL:      url,
		AuthUser: authUser,
		AuthPass: authPass,
		HasAuth:  hasAuth,
		client:   &http.Client{Transport: sharedHTTPTransport},
	}
}

// ReadAttribute posts a "read" request for mbean.attribute.
func (h *HttpExec) ReadAttribute(ctx context.Context, mbean, attribute string) (json.RawMessage, error) {
	return h.do(ctx, jolokiaRequest{Type: "read", MBean: mbean, Attribute: attribute})
}

// ExecOperation posts an "exec" request invoking mbean.operation(args...).
func (h *HttpExec) ExecOperation(ctx context.Context, mbean, operation string, args []interface{}) (json.RawMessage, error) {
	return h.do(ctx, jolokiaRequest{Type: "exec", MBean: mbean, Operation: operation, Arguments: args})
}

func (h *HttpExec) do(ctx context.Context, reqBody jolokiaRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, WrapError(KindTransport, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, WrapError(KindTransport, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.HasAuth {
		req.SetBasicAuth(h.AuthUser, h.AuthPass)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, NewError(KindTimeout, "management bridge request timed out")
		}
		return nil, WrapError(KindTransport, "management bridge request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, NewError(KindAuthFailed, "management bridge rejected credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(KindProtocol, fmt.Sprintf("management bridge returned HTTP %d", resp.StatusCode))
	}

	var body jolokiaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, WrapError(KindProtocol, "failed to decode management bridge response", err)
	}
	if body.Status != 200 {
		return nil, NewError(KindProtocol, fmt.Sprintf("management bridge status %d", body.Status))
	}
	return body.Value, nil
}

// Exec implements Transport for symmetry with LocalExec/ShellExec, even
// though HTTP callers normally use ReadAttribute/ExecOperation directly.
// operation is interpreted as "<mbean>#<attribute>".
func (h *HttpExec) Exec(ctx context.Context, operation string, args []string) (*ExecResult, error) {
	parts := strings.SplitN(operation, "#", 2)
	if len(parts) != 2 {
		return nil, NewError(KindProtocol, "malformed http operation, expected mbean#attribute")
	}
	value, err := h.ReadAttribute(ctx, parts[0], parts[1])
	if err != nil {
		return nil, err
	}
	return &ExecResult{Stdout: value}, nil
}

func (h *HttpExec) Close() error { return nil }
