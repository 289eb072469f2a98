package coordination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/Azure/azure-io500/pkg/version"
)

const (
	// readyzPath is the path for the readiness probe of the leader
	readyzPath = "/readyz"
	// sessionPath returns the session id chosen by the leader
	sessionPath = "/v1/session"
	// rendezvousPath is the path every collective operation goes through
	rendezvousPath = "/v1/sessions/{session}/rendezvous/{seq:[0-9]+}"

	// pollInterval is the time to wait between readiness checks of the leader
	pollInterval = 500 * time.Millisecond
	// defaultTimeout is how long followers wait for the leader to come up
	defaultTimeout = 2 * time.Minute
)

var (
	userAgent = version.GetUserAgent("coordinator")
)

// HTTPOptions configures the HTTP provider.
type HTTPOptions struct {
	Rank int
	Size int

	// LeaderAddr is the host:port followers dial to reach the leader
	LeaderAddr string

	// ListenAddr is the address the leader binds. Defaults to LeaderAddr.
	ListenAddr string

	// Timeout bounds how long followers wait for the leader to be ready
	Timeout time.Duration
}

// HTTPProvider is a provider for multi-process collectives. The leader serves
// a rendezvous API, followers long-poll it. Collective operations are
// numbered in call order, which is why a provider is not safe for concurrent
// use.
type HTTPProvider struct {
	rank    int
	size    int
	seq     uint64
	session string

	// leader only
	hub      *hub
	server   *http.Server
	listener net.Listener

	// followers only
	baseURL string
	client  *http.Client

	logger *log.Entry
}

var _ Provider = &HTTPProvider{}

// NewHTTP returns a provider for the given rank. On the leader it starts the
// rendezvous server, on followers it blocks until the leader is ready.
func NewHTTP(ctx context.Context, opts HTTPOptions) (*HTTPProvider, error) {
	if opts.Size < 1 {
		return nil, errors.Errorf("collective size must be at least 1, got %d", opts.Size)
	}
	if opts.Rank < 0 || opts.Rank >= opts.Size {
		return nil, errors.Errorf("rank %d is out of range [0, %d)", opts.Rank, opts.Size)
	}
	if opts.LeaderAddr == "" {
		return nil, errors.New("leader address is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	p := &HTTPProvider{
		rank:   opts.Rank,
		size:   opts.Size,
		logger: log.WithField("rank", opts.Rank),
	}
	if opts.Rank == LeaderRank {
		listenAddr := opts.ListenAddr
		if listenAddr == "" {
			listenAddr = opts.LeaderAddr
		}
		if err := p.serve(listenAddr); err != nil {
			return nil, err
		}
		return p, nil
	}

	p.baseURL = fmt.Sprintf("http://%s", opts.LeaderAddr)
	p.client = &http.Client{}
	if err := p.waitForLeader(ctx, opts.Timeout); err != nil {
		return nil, err
	}
	return p, nil
}

// Rank returns the rank of this process.
func (p *HTTPProvider) Rank() int { return p.rank }

// Size returns the number of processes in the collective.
func (p *HTTPProvider) Size() int { return p.size }

// Addr returns the address the leader listens on. It is empty on followers.
func (p *HTTPProvider) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Barrier blocks until every process of the collective reached it.
func (p *HTTPProvider) Barrier(ctx context.Context) error {
	_, err := p.rendezvous(ctx, contribution{Root: LeaderRank})
	return errors.Wrap(err, "barrier failed")
}

// Broadcast returns the buffer of the root rank on every rank.
func (p *HTTPProvider) Broadcast(ctx context.Context, buf []byte, root int) ([]byte, error) {
	if root < 0 || root >= p.size {
		return nil, errors.Errorf("invalid root rank %d for a collective of size %d", root, p.size)
	}
	c := contribution{Root: root}
	if p.rank == root {
		c.Payload = buf
	}
	out, err := p.rendezvous(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "broadcast failed")
	}
	return out.Payload, nil
}

// AllReduce combines one value per rank and returns the result on every rank.
func (p *HTTPProvider) AllReduce(ctx context.Context, value float64, op ReduceOp) (float64, error) {
	out, err := p.rendezvous(ctx, contribution{Root: LeaderRank, Value: value})
	if err != nil {
		return 0, errors.Wrapf(err, "allreduce(%s) failed", op)
	}
	return reduce(out.Values, op)
}

// Close shuts the leader server down gracefully. In-flight rendezvous
// responses are still delivered.
func (p *HTTPProvider) Close(ctx context.Context) error {
	if p.server == nil {
		p.client.CloseIdleConnections()
		return nil
	}
	p.logger.Debug("shutting down the coordination server")
	// shutdown the server gracefully with a 5 second timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.server.Shutdown(shutdownCtx)
}

func (p *HTTPProvider) serve(addr string) error {
	p.session = uuid.New().String()
	p.hub = newHub(p.size)

	rtr := mux.NewRouter()
	rtr.HandleFunc(readyzPath, p.readyzHandler).Methods(http.MethodGet)
	rtr.HandleFunc(sessionPath, p.sessionHandler).Methods(http.MethodGet)
	rtr.HandleFunc(rendezvousPath, p.rendezvousHandler).Methods(http.MethodPost)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	p.listener = listener
	p.server = &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           rtr,
	}

	p.logger.WithFields(log.Fields{
		"addr":      listener.Addr().String(),
		"session":   p.session,
		"size":      p.size,
		"userAgent": userAgent,
	}).Info("starting the coordination server")
	go func() {
		if err := p.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			p.logger.WithError(err).Error("coordination server stopped")
		}
	}()
	return nil
}

// waitForLeader polls the leader until it is ready and adopts its session.
func (p *HTTPProvider) waitForLeader(ctx context.Context, timeout time.Duration) error {
	err := wait.PollImmediateWithContext(ctx, pollInterval, timeout, func(ctx context.Context) (bool, error) {
		session, err := p.fetchSession(ctx)
		if err != nil {
			p.logger.WithError(err).Debug("leader is not ready yet")
			return false, nil
		}
		p.session = session
		return true, nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to reach the leader at %s", p.baseURL)
	}
	p.logger.WithField("session", p.session).Debug("joined the collective")
	return nil
}

func (p *HTTPProvider) fetchSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+sessionPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status code %d", resp.StatusCode)
	}
	var s sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", errors.Wrap(err, "failed to decode session")
	}
	return s.Session, nil
}

func (p *HTTPProvider) rendezvous(ctx context.Context, c contribution) (*outcome, error) {
	seq := p.seq
	p.seq++
	c.Rank = p.rank

	if p.hub != nil {
		return p.hub.arrive(ctx, seq, c)
	}

	body, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode contribution")
	}
	url := fmt.Sprintf("%s/v1/sessions/%s/rendezvous/%d", p.baseURL, p.session, seq)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "rendezvous %d failed", seq)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("rendezvous %d failed with status code %d: %s", seq, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	out := &outcome{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, errors.Wrapf(err, "failed to decode outcome of rendezvous %d", seq)
	}
	if len(out.Values) != p.size {
		return nil, errors.Errorf("rendezvous %d returned %d values, expected %d", seq, len(out.Values), p.size)
	}
	return out, nil
}

type sessionResponse struct {
	Session string `json:"session"`
	Size    int    `json:"size"`
}

func (p *HTTPProvider) readyzHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func (p *HTTPProvider) sessionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sessionResponse{Session: p.session, Size: p.size}); err != nil {
		p.logger.WithError(err).Error("failed to encode session")
	}
}

func (p *HTTPProvider) rendezvousHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["session"] != p.session {
		http.Error(w, fmt.Sprintf("unknown session %s", vars["session"]), http.StatusConflict)
		return
	}
	seq, err := strconv.ParseUint(vars["seq"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c := contribution{}
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode contribution: %v", err), http.StatusBadRequest)
		return
	}
	if c.Rank == LeaderRank {
		http.Error(w, "the leader does not rendezvous over HTTP", http.StatusBadRequest)
		return
	}

	p.logger.WithFields(log.Fields{"seq": seq, "from": c.Rank}).Debug("received rendezvous request")
	out, err := p.hub.arrive(r.Context(), seq, c)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		p.logger.WithError(err).Error("failed to encode outcome")
	}
}
