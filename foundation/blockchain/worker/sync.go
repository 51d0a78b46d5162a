package worker

// Sync asks every known peer for its status and connects to the peers this
// node isn't talking to yet. Each new connection starts with a query for the
// peer's latest block, which drives the rest of the catch up.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	w.runPeersOperation()
}
