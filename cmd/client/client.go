package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"fenrir/internal/common"
	fenrirNet "fenrir/internal/net"
	"fenrir/internal/orderbook"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner username (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'log']")

	// Order Parameters
	ticker := flag.String("ticker", "AAPL", "Ticker symbol (max 4 chars)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.Uint64("price", 100, "Limit price (integer ticks)")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// Cancel Parameters
	orderIDHex := flag.String("order-id", "", "Hex-encoded 16-byte order id to cancel (as printed in an execution report)")

	flag.Parse()

	// Validation
	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as '%s'\n", *serverAddr, *owner)

	// Start Listening for Reports (Async)
	go readReports(conn)

	// Prepare Enums using 'common' package
	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	orderType := common.LimitOrder
	if strings.ToLower(*typeStr) == "market" {
		orderType = common.MarketOrder
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "place":
		quantities := parseQuantities(*qtyStr)
		for _, q := range quantities {
			// Using common.Equities as the default AssetType
			err := sendPlaceOrder(conn, *owner, common.Equities, orderType, *ticker, orderbook.Price(*price), orderbook.Quantity(q), side)
			if err != nil {
				log.Printf("Failed to place order (Qty: %d): %v", q, err)
			} else {
				fmt.Printf("-> Sent %s Order: %s %d @ %d\n", strings.ToUpper(*sideStr), *ticker, q, *price)
			}
			// Small optional sleep to ensure server processes sequence distinctly if needed
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderIDHex == "" {
			log.Fatal("Error: -order-id is required for cancellation")
		}
		id, err := parseOrderID(*orderIDHex)
		if err != nil {
			log.Fatalf("Error: invalid -order-id: %v", err)
		}
		if err := sendCancelOrder(conn, common.Equities, id); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for order %s\n", id)
		}

	case "log":
		err := sendLog(conn)
		if err != nil {
			log.Printf("Failed to send log request: %v", err)
		} else {
			fmt.Println("-> Sent Log Request")
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// parseQuantities splits a comma-separated string into a slice of uint64
func parseQuantities(input string) []uint64 {
	parts := strings.Split(input, ",")
	var result []uint64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

// parseOrderID decodes a hex string into the 16-byte big-endian layout
// orderbook.OrderID uses on the wire (see orderbook.FromBytes).
func parseOrderID(s string) (orderbook.OrderID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return orderbook.OrderID{}, err
	}
	if len(raw) != 16 {
		return orderbook.OrderID{}, fmt.Errorf("order id must decode to 16 bytes, got %d", len(raw))
	}
	var b [16]byte
	copy(b[:], raw)
	return orderbook.FromBytes(b), nil
}

// sendPlaceOrder constructs and sends the NewOrder message
func sendPlaceOrder(conn net.Conn, owner string, asset common.AssetType, orderType common.OrderType, ticker string, price orderbook.Price, qty orderbook.Quantity, side common.Side) error {
	usernameLen := len(owner)
	totalLen := fenrirNet.BaseMessageHeaderLen + fenrirNet.NewOrderMessageHeaderLen + usernameLen

	buf := make([]byte, totalLen)

	// 1. Header (TypeOf = NewOrder)
	binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.NewOrder))

	// 2. Body
	binary.BigEndian.PutUint16(buf[2:4], uint16(asset))
	binary.BigEndian.PutUint16(buf[4:6], uint16(orderType))

	// Ticker (pad or truncate to 4 bytes)
	tickerBytes := make([]byte, 4)
	copy(tickerBytes, ticker)
	copy(buf[6:10], tickerBytes)

	binary.BigEndian.PutUint64(buf[10:18], uint64(price))
	binary.BigEndian.PutUint64(buf[18:26], uint64(qty))

	buf[26] = byte(side)
	buf[27] = uint8(usernameLen)

	copy(buf[28:], owner)

	_, err := conn.Write(buf)
	return err
}

// sendCancelOrder constructs and sends the CancelOrder message
func sendCancelOrder(conn net.Conn, asset common.AssetType, id orderbook.OrderID) error {
	totalLen := fenrirNet.BaseMessageHeaderLen + fenrirNet.CancelOrderMessageHeaderLen
	buf := make([]byte, totalLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.CancelOrder))
	binary.BigEndian.PutUint16(buf[2:4], uint16(asset))

	idBytes := id.Bytes()
	copy(buf[4:20], idBytes[:])

	_, err := conn.Write(buf)
	return err
}

func sendLog(conn net.Conn) error {
	buf := make([]byte, fenrirNet.BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.LogBook))
	_, err := conn.Write(buf)
	return err
}

// reportFixedHeaderLen matches internal/net.reportFixedHeaderLen:
// 1+1+1+8+8+8+2+4+4+16 = 53 bytes.
const reportFixedHeaderLen = 53

// readReports continuously reads and parses Report messages from the server
func readReports(conn net.Conn) {
	for {
		// 1. Read Fixed Header
		headerBuf := make([]byte, reportFixedHeaderLen)
		_, err := io.ReadFull(conn, headerBuf)
		if err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		// 2. Parse Fixed Fields
		msgType := fenrirNet.ReportMessageType(headerBuf[0])
		side := common.Side(headerBuf[2])

		qty := binary.BigEndian.Uint64(headerBuf[11:19])
		price := binary.BigEndian.Uint64(headerBuf[19:27])
		counterpartyLen := binary.BigEndian.Uint16(headerBuf[27:29])
		errStrLen := binary.BigEndian.Uint32(headerBuf[29:33])

		ticker := strings.TrimRight(string(headerBuf[33:37]), "\x00")
		orderID := hex.EncodeToString(headerBuf[37:53])

		// 3. Read Variable Length Strings (Error and Counterparty)
		totalVarLen := int(counterpartyLen) + int(errStrLen)
		varBuf := make([]byte, totalVarLen)
		if totalVarLen > 0 {
			_, err := io.ReadFull(conn, varBuf)
			if err != nil {
				log.Printf("Error reading report body: %v", err)
				break
			}
		}

		// Extract Strings
		errStr := ""
		counterparty := ""
		if errStrLen > 0 {
			errStr = string(varBuf[:errStrLen])
		}
		if counterpartyLen > 0 {
			counterparty = string(varBuf[errStrLen:])
		}

		// 4. Print Report using imported Enums
		if msgType == fenrirNet.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] %s\n", errStr)
		} else {
			sideStr := "BUY"
			if side == common.Sell {
				sideStr = "SELL"
			}
			fmt.Printf("\n[EXECUTION] Match: %s %s | Qty: %d | Price: %d | vs: %s | OrderID: %s\n",
				sideStr, ticker, qty, price, counterparty, orderID)
		}
	}
}
