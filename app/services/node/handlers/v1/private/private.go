// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/HamaKinger/blockchain/foundation/blockchain/peer"
	"github.com/HamaKinger/blockchain/foundation/blockchain/state"
	"github.com/HamaKinger/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// P2P upgrades the connection of a peer and runs the sync protocol on it
// until the peer goes away.
func (h Handlers) P2P(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	conn, err := peer.Upgrade(w, r)
	if err != nil {
		return err
	}

	h.Log.Infow("p2p", "traceid", v.TraceID, "status", "peer connected", "host", conn.Host())

	h.State.ServePeer(conn)

	return nil
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}
