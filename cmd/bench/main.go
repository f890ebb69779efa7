// cmd/bench replays a CSV order log against a fresh orderbook.Book in
// batches, reporting per-batch latency statistics the way the original
// quantcup benchmark harness did.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"fenrir/internal/bench"
	"fenrir/internal/orderbook"
)

func main() {
	path := flag.String("data", "data/orders.csv", "CSV file of (id, side, price, qty) order records")
	batchSize := flag.Int("batch-size", 5000, "number of commands replayed per latency sample")
	replayCount := flag.Int("replay-count", 200, "number of times to replay the full command set against a fresh book")
	flag.Parse()

	commands, err := loadCommands(*path)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *path, err)
	}
	if len(commands) < *batchSize {
		log.Fatalf("need at least %d commands to form one batch, have %d", *batchSize, len(commands))
	}

	total := len(commands)
	samples := make([]uint64, 0, *replayCount*(total / *batchSize))

	var totalNanos uint64
	for r := 0; r < *replayCount; r++ {
		book := orderbook.New(orderbook.DefaultConfig())

		for i := *batchSize; i <= total; i += *batchSize {
			start := time.Now()
			for _, cmd := range commands[i-*batchSize : i] {
				book.Execute(cmd)
			}
			nanos := uint64(time.Since(start).Nanoseconds())
			samples = append(samples, nanos)
			totalNanos += nanos
		}
	}

	stats := bench.Summarize(samples)
	fmt.Println()
	fmt.Printf("%-15s = %12d ns\n", "Total time", totalNanos)
	fmt.Printf("%-15s = %12.0f ns\n", "Mean per batch", stats.Mean)
	fmt.Printf("%-15s = %12.0f ns\n", "SD", stats.StdDev)
	fmt.Printf("%-15s = %12.0f\n", "Score", stats.Score())
}

// loadCommands reads (id, side, price, qty) rows, minting a fresh OrderID
// for each Limit row and translating a price of 0 into a Cancel of the id
// carried in the qty column, per the original harness's convert_to_order.
func loadCommands(path string) ([]orderbook.Command, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 4
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}

	commands := make([]orderbook.Command, 0, len(rows))
	var nextID uint64
	for _, row := range rows {
		price, err := strconv.ParseUint(row[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing price %q: %w", row[2], err)
		}
		qty, err := strconv.ParseUint(row[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing qty %q: %w", row[3], err)
		}

		if price == 0 {
			commands = append(commands, orderbook.CancelCommand(orderbook.FromUint64(qty)))
			continue
		}

		side, err := parseSide(row[1])
		if err != nil {
			return nil, err
		}
		nextID++
		commands = append(commands, orderbook.LimitCommand(
			orderbook.FromUint64(nextID), side, orderbook.Quantity(qty), orderbook.Price(price)))
	}
	return commands, nil
}

func parseSide(s string) (orderbook.Side, error) {
	switch strings.ToLower(s) {
	case "bid":
		return orderbook.Bid, nil
	case "ask":
		return orderbook.Ask, nil
	default:
		return 0, fmt.Errorf("side must be 'Bid' or 'Ask', got %q", s)
	}
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := strconv.ParseUint(row[0], 10, 64)
	return err != nil
}
