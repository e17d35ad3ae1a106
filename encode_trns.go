package portfolio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EncodeTrn encodes one transaction as a single JSON line with a stable key
// order. Optional legs are omitted so a plain deposit stays a short line.
func EncodeTrn(w io.Writer, trn Trn) error {
	obj := &jsonObjectWriter{}
	obj.Optional("id", trn.ID).
		Append("trnType", trn.Type).
		Append("tradeDate", trn.TradeDate)
	if !trn.Asset.IsZero() {
		obj.Append("asset", trn.Asset)
	}
	if !trn.CashAsset.IsZero() {
		obj.Append("cashAsset", trn.CashAsset)
	}
	if !trn.Quantity.IsZero() {
		obj.Append("quantity", trn.Quantity)
	}
	if !trn.Price.IsZero() {
		obj.Append("price", trn.Price)
	}
	obj.Append("tradeAmount", trn.TradeAmount)
	if !trn.CashAmount.IsZero() {
		obj.Append("cashAmount", trn.CashAmount)
	}
	obj.Optional("tradeBaseRate", trn.TradeBaseRate).
		Optional("tradeCashRate", trn.TradeCashRate).
		Optional("tradePortfolioRate", trn.TradePortfolioRate).
		Optional("memo", trn.Memo)

	line, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	line = append(line, '\n')
	_, err = w.Write(line)
	return err
}

// EncodeTrns writes a batch in chronological order, one line per transaction.
func EncodeTrns(w io.Writer, trns []Trn) error {
	sorted := make([]Trn, len(trns))
	copy(sorted, trns)
	SortTrns(sorted)
	for _, trn := range sorted {
		if err := EncodeTrn(w, trn); err != nil {
			return err
		}
	}
	return nil
}

// DecodeTrns reads a JSONL stream of transactions. Blank lines are skipped;
// a malformed line fails the whole decode with its line number.
func DecodeTrns(r io.Reader) ([]Trn, error) {
	var trns []Trn
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var trn Trn
		if err := json.Unmarshal(raw, &trn); err != nil {
			return nil, fmt.Errorf("decode transaction at line %d: %w", line, err)
		}
		if _, err := ParseTrnType(string(trn.Type)); err != nil {
			return nil, fmt.Errorf("decode transaction at line %d: %w", line, err)
		}
		trns = append(trns, trn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return trns, nil
}

// FileTrnSource reads per-portfolio JSONL ledgers from a directory laid out
// as <dir>/<portfolio-id>.jsonl.
type FileTrnSource struct {
	dir string
}

// NewFileTrnSource creates a source over a ledger directory.
func NewFileTrnSource(dir string) *FileTrnSource { return &FileTrnSource{dir: dir} }

// path is the ledger file of one portfolio.
func (s *FileTrnSource) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".jsonl")
}

// Trns loads a portfolio's ledger and keeps the transactions inside the
// range. A missing ledger is an empty portfolio, not an error.
func (s *FileTrnSource) Trns(_ context.Context, id uuid.UUID, r Range) ([]Trn, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	all, err := DecodeTrns(f)
	if err != nil {
		return nil, err
	}
	var out []Trn
	for _, trn := range all {
		if r.Contains(trn.TradeDate) {
			out = append(out, trn)
		}
	}
	return out, nil
}

// Append adds transactions to a portfolio's ledger, creating it on first
// write.
func (s *FileTrnSource) Append(id uuid.UUID, trns ...Trn) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(s.path(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	return EncodeTrns(f, trns)
}
