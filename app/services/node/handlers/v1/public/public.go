// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HamaKinger/blockchain/business/web/errs"
	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/state"
	"github.com/HamaKinger/blockchain/foundation/events"
	"github.com/HamaKinger/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints for clients.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The sources
// query parameter limits the stream to a comma separated set of sources.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	var sources []string
	if filter := r.URL.Query().Get("sources"); filter != "" {
		sources = strings.Split(filter, ",")
	}

	sub := h.Evts.Acquire(v.TraceID, sources...)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-sub.C:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Chain returns the full chain in index order.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// Block returns the block at the index, or the latest block.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	indexStr := web.Param(r, "index")

	if indexStr == "latest" {
		block, exists := h.State.RetrieveLatestBlock()
		if !exists {
			return errs.NewTrusted(errors.New("chain is empty"), http.StatusNotFound)
		}
		return web.Respond(ctx, w, block, http.StatusOK)
	}

	index, err := strconv.ParseUint(indexStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid index %q", indexStr), http.StatusBadRequest)
	}

	block, exists := h.State.QueryBlockByIndex(index)
	if !exists {
		return errs.NewTrusted(fmt.Errorf("block %d not found", index), http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// PackedTransactions returns every transaction carried by the chain.
func (h Handlers) PackedTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryKnownTransactions(), http.StatusOK)
}

// LatestTransactions returns the transactions of the latest block.
func (h Handlers) LatestTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryLatestTransactions(), http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// Ledger returns every ledger entry.
func (h Handlers) Ledger(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveLedger(), http.StatusOK)
}

// Genesis returns the consensus parameters of the chain.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// CreateGenesis mines the genesis block.
func (h Handlers) CreateGenesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.CreateGenesis(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusCreated)
}

// Mine mines one block on top of the chain.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineNewBlock(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MinerAddress returns the address mining rewards are paid to.
func (h Handlers) MinerAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	miner := h.State.MinerAddress()
	if miner == "" {
		return state.ErrNoMiningKey
	}

	return web.Respond(ctx, w, status{Status: "ok", Data: miner}, http.StatusOK)
}

// MinerBalance returns the balance of the miner in coins.
func (h Handlers) MinerBalance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bal, err := h.State.QueryMinerBalance()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status{Status: "ok", Data: bal}, http.StatusOK)
}

// Balance returns the balance and unspent outputs of an address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	amount, err := h.State.QueryBalance(address)
	if err != nil {
		return err
	}

	utxos, err := h.State.QueryUtxos(address)
	if err != nil {
		return err
	}

	resp := balance{
		Address: address,
		Balance: amount.Coins(),
		Utxos:   utxos,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Transfer builds and signs a transfer with a key held by the node.
func (h Handlers) Transfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req transfer
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := database.ParseCoins(req.Amount)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("amount: %w", err), http.StatusBadRequest)
	}

	fee, err := database.ParseCoins(req.Fee)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("fee: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("transfer", "traceid", v.TraceID, "from", req.From, "to", req.To, "amount", amount.Coins(), "fee", fee.Coins())

	txHash, err := h.State.SubmitTransfer(req.From, req.To, amount, fee)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status{Status: "transaction created, waiting for a miner", Data: txHash}, http.StatusOK)
}

// SubmitWalletTransaction adds a transaction signed by a wallet to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", tx.TxHash, "from", tx.FromAddress, "to", tx.ToAddress)

	if err := h.State.UpsertWalletTransaction(tx); err != nil {
		return err
	}

	return web.Respond(ctx, w, status{Status: "transaction added to mempool", Data: tx.TxHash}, http.StatusOK)
}

// ConnectPeer opens a connection to another node.
func (h Handlers) ConnectPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req connect
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := h.State.ConnectPeer(ctx, req.Address); err != nil {
		return errs.NewTrusted(err, http.StatusBadGateway)
	}

	return web.Respond(ctx, w, status{Status: "connection requested", Data: req.Address}, http.StatusOK)
}

// Peers returns the known peers and the live connections.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}
