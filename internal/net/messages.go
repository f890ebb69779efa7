package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"fenrir/internal/common"
	"fenrir/internal/orderbook"

	"github.com/google/uuid"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for specified username length")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants. The order id changed from a 16-byte UUID
// string to the core's 16-byte OrderID (spec.md §3); both are 128 bits, so
// the header lengths are unchanged from the teacher's original framing.
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 2 + 2 + 4 + 8 + 8 + 1 + 1
	CancelOrderMessageHeaderLen = 2 + 16
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, errors.New("message too short to contain header")
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	AssetType   common.AssetType // 2 bytes
	OrderType   common.OrderType // 2 bytes
	Ticker      string           // 4 bytes
	LimitPrice  orderbook.Price  // 8 bytes
	Quantity    orderbook.Quantity
	Side        common.Side // 1 byte
	UsernameLen uint8       // 1 byte
	Username    string      // n bytes
}

// Order mints a fresh OrderID for the request (the client never supplies
// one) by reinterpreting a freshly generated UUID's 16 bytes as the core's
// 128-bit OrderID (see orderbook.FromBytes).
func (o *NewOrderMessage) Order() (common.Order, error) {
	return common.Order{
		ID:         orderbook.FromBytes(uuid.New()),
		AssetType:  o.AssetType,
		OrderType:  o.OrderType,
		Ticker:     o.Ticker,
		LimitPrice: o.LimitPrice,
		Quantity:   o.Quantity,
		Side:       o.Side,
		Owner:      o.Username,
	}, nil
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m.AssetType = common.AssetType(binary.BigEndian.Uint16(msg[0:2]))
	m.OrderType = common.OrderType(binary.BigEndian.Uint16(msg[2:4]))
	m.Ticker = string(msg[4:8]) // Assuming ASCII/UTF-8 string
	m.LimitPrice = orderbook.Price(binary.BigEndian.Uint64(msg[8:16]))
	m.Quantity = orderbook.Quantity(binary.BigEndian.Uint64(msg[16:24]))
	m.Side = common.Side(msg[24])
	m.UsernameLen = uint8(msg[25])

	// Calculate expected total length.
	expectedTotalLen := int(NewOrderMessageHeaderLen + m.UsernameLen)
	if len(msg) < expectedTotalLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[26 : 26+m.UsernameLen])

	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	AssetType common.AssetType
	OrderID   orderbook.OrderID
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}

	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m.AssetType = common.AssetType(binary.BigEndian.Uint16(msg[0:2]))
	var idBytes [16]byte
	copy(idBytes[:], msg[2:18])
	m.OrderID = orderbook.FromBytes(idBytes)

	return m, nil
}

type Report struct {
	MessageType     ReportMessageType // 1 byte
	AssetType       common.AssetType  // 1 byte
	Side            common.Side       // 1 byte
	Timestamp       uint64            // 8 bytes
	Quantity        orderbook.Quantity
	Price           orderbook.Price
	CounterpartyLen uint16            // 2 bytes
	ErrStrLen       uint32            // 4 bytes
	Ticker          string            // 4 bytes
	OrderID         orderbook.OrderID // 16 bytes
	Err             string            // n bytes
	Counterparty    string            // n bytes (in this case we show who)
}

const reportFixedHeaderLen = 1 + 1 + 1 + 8 + 8 + 8 + 2 + 4 + 4 + 16

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() ([]byte, error) {
	totalSize := reportFixedHeaderLen + len(r.Err) + len(r.Counterparty)

	buf := make([]byte, totalSize)
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.AssetType)
	buf[2] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[3:11], r.Timestamp)
	binary.BigEndian.PutUint64(buf[11:19], uint64(r.Quantity))
	binary.BigEndian.PutUint64(buf[19:27], uint64(r.Price))
	binary.BigEndian.PutUint16(buf[27:29], r.CounterpartyLen)
	binary.BigEndian.PutUint32(buf[29:33], r.ErrStrLen)

	// Pack the ticker into its fixed 4-byte slot, truncated or zero-padded.
	copy(buf[33:37], padTicker(r.Ticker))
	idBytes := r.OrderID.Bytes()
	copy(buf[37:53], idBytes[:])

	offset := reportFixedHeaderLen
	if r.ErrStrLen > 0 {
		copy(buf[offset:], r.Err)
	}
	offset += int(r.ErrStrLen)
	if r.CounterpartyLen > 0 {
		copy(buf[offset:], r.Counterparty)
	}
	return buf, nil
}

// padTicker fits ticker into exactly 4 bytes, truncating a longer ticker
// and zero-padding a shorter one.
func padTicker(ticker string) []byte {
	out := make([]byte, 4)
	copy(out, ticker)
	return out
}

// generateWireTradeReports generates both trade reports, one addressed to
// each counterparty.
func generateWireTradeReports(trade common.Trade, err error) ([]byte, []byte, error) {
	errStr := ""
	if err != nil {
		errStr = fmt.Sprintf("%v", err)
	}

	createReport := func(party *common.Order, counterParty *common.Order) Report {
		return Report{
			MessageType:     ExecutionReport,
			AssetType:       counterParty.AssetType,
			Side:            party.Side,
			Timestamp:       uint64(trade.Timestamp.Unix()),
			Quantity:        trade.MatchQty,
			Price:           trade.Price,
			CounterpartyLen: uint16(len(counterParty.Owner)),
			ErrStrLen:       uint32(len(errStr)),
			Ticker:          party.Ticker,
			OrderID:         party.ID,
			Counterparty:    counterParty.Owner,
			Err:             errStr,
		}
	}

	r1 := createReport(trade.Party, trade.CounterParty)
	r2 := createReport(trade.CounterParty, trade.Party)

	b1, err := r1.Serialize()
	if err != nil {
		return nil, nil, err
	}

	b2, err := r2.Serialize()
	if err != nil {
		return nil, nil, err
	}

	return b1, b2, nil
}

func generateWireErrorReports(err error) ([]byte, error) {
	errStr := fmt.Sprintf("%v", err)
	report := Report{
		MessageType: ErrorReport,
		Timestamp:   uint64(time.Now().UnixNano()),
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
	return report.Serialize()
}
