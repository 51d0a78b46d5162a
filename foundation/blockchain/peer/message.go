package peer

import (
	"encoding/json"
	"fmt"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// MessageType identifies the kind of sync protocol message.
type MessageType int

// Set of sync protocol message types.
const (
	QueryLatest   MessageType = 1
	RespondLatest MessageType = 2
	QueryChain    MessageType = 3
	RespondChain  MessageType = 4
)

// String implements the fmt.Stringer interface.
func (mt MessageType) String() string {
	switch mt {
	case QueryLatest:
		return "QueryLatest"
	case RespondLatest:
		return "RespondLatest"
	case QueryChain:
		return "QueryChain"
	case RespondChain:
		return "RespondChain"
	}
	return fmt.Sprintf("MessageType(%d)", int(mt))
}

// Message is the envelope exchanged between peers. Data carries the JSON
// encoding of the payload as a string.
type Message struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// NewQueryLatest asks a peer for its latest block.
func NewQueryLatest() Message {
	return Message{Type: QueryLatest}
}

// NewQueryChain asks a peer for its whole chain.
func NewQueryChain() Message {
	return Message{Type: QueryChain}
}

// NewRespondLatest carries the latest block. A nil block is sent with
// empty data.
func NewRespondLatest(block *database.Block) (Message, error) {
	if block == nil {
		return Message{Type: RespondLatest}, nil
	}

	data, err := json.Marshal(block)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: RespondLatest, Data: string(data)}, nil
}

// NewRespondChain carries the whole chain.
func NewRespondChain(blocks []database.Block) (Message, error) {
	if blocks == nil {
		blocks = []database.Block{}
	}

	data, err := json.Marshal(blocks)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: RespondChain, Data: string(data)}, nil
}

// Decode parses an envelope read from a connection.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	if msg.Type < QueryLatest || msg.Type > RespondChain {
		return Message{}, fmt.Errorf("unknown message type %d", msg.Type)
	}

	return msg, nil
}

// Block decodes the block carried by a RespondLatest message. The bool is
// false when the sender had no block.
func (m Message) Block() (database.Block, bool, error) {
	if m.Data == "" || m.Data == "null" {
		return database.Block{}, false, nil
	}

	var block database.Block
	if err := json.Unmarshal([]byte(m.Data), &block); err != nil {
		return database.Block{}, false, fmt.Errorf("decode block: %w", err)
	}

	return block, true, nil
}

// Blocks decodes the chain carried by a RespondChain message.
func (m Message) Blocks() ([]database.Block, error) {
	if m.Data == "" || m.Data == "null" {
		return nil, nil
	}

	var blocks []database.Block
	if err := json.Unmarshal([]byte(m.Data), &blocks); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}

	return blocks, nil
}
