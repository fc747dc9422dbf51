package subscription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
)

const (
	maxReconnectAttempts = 10
	connectTimeout       = 30 * time.Second
	normalCloseDelay     = 5 * time.Second
	switchProviderDelay  = 2 * time.Second
)

// poolCreationKeywords are the log-line substrings treated as evidence of a
// new pool being created by a DEX program we're following.
var poolCreationKeywords = []string{"initialize", "createPool", "initialize2", "newPool", "create"}

// AccountUpdate is enqueued to the consumer (the registry's Apply loop) for
// every accountNotification, and with Ok=false as the give-up sentinel once
// every provider has failed.
type AccountUpdate struct {
	Address solana.PublicKey
	Data    []byte
	Ok      bool
}

// NewPoolCandidate is emitted when a DEX program's logs contain a creation
// keyword. Resolving it to an actual pool address requires parsing the
// referenced transaction — the manager only signals that something worth
// investigating happened.
type NewPoolCandidate struct {
	DexProgram solana.PublicKey
	Signature  string
	Logs       []string
}

// FailoverNotice is emitted every time the manager switches its active
// provider after a connection failure, so an operator-facing surface can
// show a reconnect happening without tailing logs.
type FailoverNotice struct {
	From   string
	To     string
	Reason string
}

// subscribeRequest is the outgoing JSON-RPC envelope for both
// accountSubscribe and logsSubscribe.
type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcMessage is the generic inbound envelope: either a subscription ack
// (Result set) or a notification (Method + Params set).
type rpcMessage struct {
	ID     *uint64         `json:"id"`
	Result *uint64         `json:"result"`
	Method string          `json:"method"`
	Params *notifyParams   `json:"params"`
	Error  *rpcMessageErr  `json:"error"`
}

type rpcMessageErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type notifyParams struct {
	Subscription uint64          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type accountNotifyResult struct {
	Value *accountNotifyValue `json:"value"`
}

type accountNotifyValue struct {
	Data       [2]string `json:"data"` // [base64, encoding]
	Owner      string    `json:"owner"`
	Lamports   uint64    `json:"lamports"`
	Executable bool      `json:"executable"`
}

type logsNotifyResult struct {
	Value *logsNotifyValue `json:"value"`
}

type logsNotifyValue struct {
	Signature string   `json:"signature"`
	Logs      []string `json:"logs"`
}

// Manager runs the connect/subscribe/dispatch/reconnect loop against a
// prioritized list of WebSocket RPC providers, failing over to the next
// healthiest one whenever the active connection drops.
type Manager struct {
	providers []Provider

	healthMu sync.Mutex
	health   map[string]providerHealth

	poolAddresses       []solana.PublicKey
	dexProgramAddresses []solana.PublicKey

	Updates   chan AccountUpdate
	NewPools  chan NewPoolCandidate
	Failovers chan FailoverNotice

	reconnectAttempts int
}

// New builds a manager that will subscribe to poolAddresses (account
// updates) and dexPrograms (log-based new pool detection). If customWSURL
// is non-empty and not already covered by DefaultProviders, it's inserted
// as the highest-priority "Custom" provider.
func New(customWSURL string, poolAddresses, dexPrograms []solana.PublicKey) *Manager {
	providers := DefaultProviders()
	if customWSURL != "" && !coveredByDefaults(providers, customWSURL) {
		custom := Provider{Name: "Custom", WSURL: customWSURL, Priority: 0, RateLimit: 200}
		providers = append([]Provider{custom}, providers...)
	}
	return &Manager{
		providers:           providers,
		health:              make(map[string]providerHealth),
		poolAddresses:       poolAddresses,
		dexProgramAddresses: dexPrograms,
		Updates:             make(chan AccountUpdate, 256),
		NewPools:            make(chan NewPoolCandidate, 64),
		Failovers:           make(chan FailoverNotice, 16),
	}
}

func coveredByDefaults(providers []Provider, url string) bool {
	for _, p := range providers {
		if p.WSURL == url {
			return true
		}
	}
	return false
}

// Run is the main connect/dispatch/reconnect loop. It blocks until ctx is
// canceled or every provider has exhausted its reconnect budget, at which
// point it emits the give-up sentinel for every configured pool address and
// returns.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		provider := m.bestProvider()
		log.Printf("[Subscription] connecting to %s (%s)", provider.Name, provider.WSURL)

		err := m.connectAndSubscribe(ctx, provider)
		if err == nil {
			m.recordResult(provider.Name, true)
			m.reconnectAttempts = 0
			log.Printf("[Subscription] connection to %s closed normally, reconnecting in %s", provider.Name, normalCloseDelay)
			if !sleepOrDone(ctx, normalCloseDelay) {
				return
			}
			continue
		}

		m.recordResult(provider.Name, false)
		log.Printf("[Subscription] connection to %s failed: %v", provider.Name, err)

		if alt := m.switchProvider(provider); alt != nil {
			log.Printf("[Subscription] switching to provider %s", alt.Name)
			m.emitFailover(provider.Name, alt.Name, err.Error())
			if !sleepOrDone(ctx, switchProviderDelay) {
				return
			}
			continue
		}

		m.reconnectAttempts++
		if m.reconnectAttempts >= maxReconnectAttempts {
			log.Printf("[Subscription] giving up after %d attempts across all providers", m.reconnectAttempts)
			m.emitGiveUpSentinel()
			return
		}
		backoff := exponentialBackoff(m.reconnectAttempts)
		log.Printf("[Subscription] reconnecting in %s (attempt %d/%d)", backoff, m.reconnectAttempts, maxReconnectAttempts)
		if !sleepOrDone(ctx, backoff) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func exponentialBackoff(attempts int) time.Duration {
	secs := uint64(1) << uint(attempts)
	if secs > 60 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

func (m *Manager) emitGiveUpSentinel() {
	for _, addr := range m.poolAddresses {
		m.Updates <- AccountUpdate{Address: addr, Ok: false}
	}
}

// emitFailover is a non-blocking send: a dashboard-less run never drains
// Failovers, and the connect/dispatch/reconnect loop must not stall on it.
func (m *Manager) emitFailover(from, to, reason string) {
	select {
	case m.Failovers <- FailoverNotice{From: from, To: to, Reason: reason}:
	default:
	}
}

func (m *Manager) bestProvider() Provider {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()

	best := m.providers[0]
	bestScore := -1.0
	for _, p := range m.providers {
		h := m.health[p.Name]
		score := p.HealthScore(h.success, h.failure)
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	return best
}

// switchProvider picks the next-best provider other than current, skipping
// providers with a failure-majority health record when alternatives exist,
// falling back to a round-robin scan when health-based selection doesn't
// turn up anything different.
func (m *Manager) switchProvider(current Provider) *Provider {
	best := m.bestProvider()
	if best.Name != current.Name {
		return &best
	}
	if len(m.providers) <= 1 {
		return nil
	}

	m.healthMu.Lock()
	defer m.healthMu.Unlock()
	for i := 1; i <= len(m.providers); i++ {
		idx := (indexOf(m.providers, current) + i) % len(m.providers)
		p := m.providers[idx]
		h := m.health[p.Name]
		if h.failure > 0 && h.failure > h.success {
			continue
		}
		return &p
	}
	return nil
}

func indexOf(providers []Provider, p Provider) int {
	for i, q := range providers {
		if q.Name == p.Name {
			return i
		}
	}
	return 0
}

func (m *Manager) recordResult(providerName string, success bool) {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()
	h := m.health[providerName]
	if success {
		h.success++
	} else {
		h.failure++
	}
	m.health[providerName] = h
}

// connectAndSubscribe dials provider, sends every account/log subscribe
// request, and runs the dispatch loop until the stream closes or ctx is
// canceled.
func (m *Manager) connectAndSubscribe(ctx context.Context, provider Provider) error {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, provider.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", provider.WSURL, err)
	}
	defer conn.Close()

	accountSubs, logSubs, err := m.sendSubscriptions(conn, provider)
	if err != nil {
		return err
	}

	return m.dispatchLoop(ctx, conn, accountSubs, logSubs)
}

// sendSubscriptions emits one accountSubscribe per pool address and one
// logsSubscribe per DEX program, skipping the remainder with a warning once
// the provider's rate limit is reached.
func (m *Manager) sendSubscriptions(conn *websocket.Conn, provider Provider) (accountSubs, logSubs map[uint64]solana.PublicKey, err error) {
	accountSubs = make(map[uint64]solana.PublicKey)
	logSubs = make(map[uint64]solana.PublicKey)

	var id uint64 = 1
	for _, addr := range m.poolAddresses {
		if id > uint64(provider.RateLimit) {
			log.Printf("[Subscription] rate limit (%d) reached, skipping remaining pool subscriptions", provider.RateLimit)
			break
		}
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "accountSubscribe",
			Params: []interface{}{
				addr.String(),
				map[string]string{"encoding": "base64", "commitment": "confirmed"},
			},
		}
		if err := conn.WriteJSON(req); err != nil {
			log.Printf("[Subscription] failed to send subscription for pool %s: %v", addr, err)
			continue
		}
		accountSubs[id] = addr
		id++
	}

	for _, prog := range m.dexProgramAddresses {
		if id > uint64(provider.RateLimit) {
			log.Printf("[Subscription] rate limit (%d) reached, skipping remaining log subscriptions", provider.RateLimit)
			break
		}
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "logsSubscribe",
			Params: []interface{}{
				map[string]interface{}{"mentions": []string{prog.String()}},
				map[string]string{"commitment": "confirmed"},
			},
		}
		if err := conn.WriteJSON(req); err != nil {
			log.Printf("[Subscription] failed to send log subscription for DEX program %s: %v", prog, err)
			continue
		}
		logSubs[id] = prog
		id++
	}

	return accountSubs, logSubs, nil
}

// dispatchLoop reads messages until the connection closes or ctx is
// canceled, routing each one to its account or log handler. The request
// id -> address maps passed in are re-keyed by server-assigned subscription
// id as each request's ack arrives; a notification whose subscription has
// not been acked yet is dropped.
func (m *Manager) dispatchLoop(ctx context.Context, conn *websocket.Conn, accountSubs, logSubs map[uint64]solana.PublicKey) error {
	pendingAccounts, pendingLogs := accountSubs, logSubs
	accountSubs = make(map[uint64]solana.PublicKey, len(pendingAccounts))
	logSubs = make(map[uint64]solana.PublicKey, len(pendingLogs))

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg rpcMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[Subscription] failed to parse message: %v", err)
			continue
		}

		if msg.Error != nil {
			log.Printf("[Subscription] RPC error: %s (code %d)", msg.Error.Message, msg.Error.Code)
			continue
		}

		if msg.ID != nil && msg.Result != nil {
			if addr, ok := pendingAccounts[*msg.ID]; ok {
				accountSubs[*msg.Result] = addr
			} else if prog, ok := pendingLogs[*msg.ID]; ok {
				logSubs[*msg.Result] = prog
			}
			continue
		}

		switch msg.Method {
		case "accountNotification":
			m.handleAccountNotification(msg.Params, accountSubs)
		case "logsNotification":
			m.handleLogsNotification(msg.Params, logSubs)
		}
	}
}

func (m *Manager) handleAccountNotification(params *notifyParams, accountSubs map[uint64]solana.PublicKey) {
	if params == nil {
		return
	}
	addr, ok := accountSubs[params.Subscription]
	if !ok {
		return
	}
	var result accountNotifyResult
	if err := json.Unmarshal(params.Result, &result); err != nil || result.Value == nil {
		return
	}
	data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		log.Printf("[Subscription] failed to decode base64 account data for %s: %v", addr, err)
		return
	}
	m.Updates <- AccountUpdate{Address: addr, Data: data, Ok: true}
}

func (m *Manager) handleLogsNotification(params *notifyParams, logSubs map[uint64]solana.PublicKey) {
	if params == nil {
		return
	}
	prog, ok := logSubs[params.Subscription]
	if !ok {
		return
	}
	var result logsNotifyResult
	if err := json.Unmarshal(params.Result, &result); err != nil || result.Value == nil {
		return
	}
	if !containsPoolCreationKeyword(result.Value.Logs) {
		return
	}
	log.Printf("[Subscription] potential new pool from DEX program %s (signature %s)", prog, result.Value.Signature)
	m.NewPools <- NewPoolCandidate{DexProgram: prog, Signature: result.Value.Signature, Logs: result.Value.Logs}
}

func containsPoolCreationKeyword(logs []string) bool {
	for _, line := range logs {
		for _, kw := range poolCreationKeywords {
			if strings.Contains(line, kw) {
				return true
			}
		}
	}
	return false
}
