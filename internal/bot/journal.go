// internal/bot/journal.go
package bot

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/oracle-amm/internal/dex"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/logger"
)

// Journal appends every routed quote to a CSV file, one row per pool.
type Journal struct {
	writer *logger.SafeCSVWriter
	now    func() time.Time
}

func NewJournal(path string, flushInterval time.Duration, log *zap.Logger) (*Journal, error) {
	w, err := logger.NewSafeCSVWriter(path, logger.QuoteJournalHeader, flushInterval, log)
	if err != nil {
		return nil, err
	}
	return &Journal{writer: w, now: time.Now}, nil
}

// Record writes the results of one quote request.
func (j *Journal) Record(params model.QuoteParams, results []dex.QuoteResult) error {
	ts := j.now().UTC().Format(time.RFC3339Nano)
	for _, res := range results {
		if err := j.writer.WriteRecord(journalRow(ts, params, res)); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error {
	return j.writer.Close()
}

func journalRow(ts string, params model.QuoteParams, res dex.QuoteResult) []string {
	q := res.Quote
	if q == nil {
		q = &model.Quote{InAmount: params.Amount}
	}
	return []string{
		ts,
		res.Pool.String(),
		res.Label,
		params.InputMint.String(),
		params.OutputMint.String(),
		strconv.FormatUint(q.InAmount, 10),
		strconv.FormatUint(q.OutAmount, 10),
		strconv.FormatUint(q.FeeAmount, 10),
		strconv.FormatUint(q.ProtocolFee, 10),
		strconv.FormatUint(q.LPFee, 10),
		strconv.FormatUint(q.Rebate, 10),
		quoteStatus(res),
	}
}

func quoteStatus(res dex.QuoteResult) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.Usable():
		return "ok"
	default:
		return "no_liquidity"
	}
}
